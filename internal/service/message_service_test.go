package service

import (
	"context"
	"testing"
	"time"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/realtime"
	"Uni_Connect/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupMessages_MembershipCheckedAtSend(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)
	testutil.AddMember(t, e.db, g.ID, b.ID, model.RoleMember)

	first, err := e.messages.SendGroupMessage(ctx, g.ID, b.ID, "hi", "")
	require.NoError(t, err)
	_, err = e.messages.SendGroupMessage(ctx, g.ID, b.ID, "   ", "")
	assert.ErrorIs(t, err, ErrValidation)

	// 打开页面后被移出群，再发送会被拒绝
	require.NoError(t, e.groups.RemoveMember(ctx, g.ID, a.ID, b.ID))
	_, err = e.messages.SendGroupMessage(ctx, g.ID, b.ID, "still here?", "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = e.messages.ListGroupMessages(ctx, g.ID, b.ID, 0, 10)
	assert.ErrorIs(t, err, ErrUnauthorized)

	second, err := e.messages.SendGroupMessage(ctx, g.ID, a.ID, "bye", "")
	require.NoError(t, err)
	list, err := e.messages.ListGroupMessages(ctx, g.ID, a.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	after, err := e.messages.ListGroupMessages(ctx, g.ID, a.ID, first.ID, 10)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, second.ID, after[0].ID)
}

func TestDeleteGroupMessage(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)
	testutil.AddMember(t, e.db, g.ID, b.ID, model.RoleMember)
	testutil.AddMember(t, e.db, g.ID, c.ID, model.RoleMember)

	m1, err := e.messages.SendGroupMessage(ctx, g.ID, b.ID, "one", "")
	require.NoError(t, err)
	m2, err := e.messages.SendGroupMessage(ctx, g.ID, b.ID, "two", "")
	require.NoError(t, err)

	assert.ErrorIs(t, e.messages.DeleteGroupMessage(ctx, g.ID, c.ID, m1.ID), ErrUnauthorized)
	require.NoError(t, e.messages.DeleteGroupMessage(ctx, g.ID, b.ID, m1.ID))
	assert.ErrorIs(t, e.messages.DeleteGroupMessage(ctx, g.ID, b.ID, m1.ID), ErrNotFound)

	settings := model.DefaultGroupSettings()
	settings.AllowMessageDeletion = false
	_, err = e.groups.Update(ctx, g.ID, a.ID, GroupPatch{Settings: &settings})
	require.NoError(t, err)
	assert.ErrorIs(t, e.messages.DeleteGroupMessage(ctx, g.ID, b.ID, m2.ID), ErrUnauthorized)
	// 管理员始终可以删除
	require.NoError(t, e.messages.DeleteGroupMessage(ctx, g.ID, a.ID, m2.ID))
}

func TestGroupMessage_PublishedToRoomTopic(t *testing.T) {
	e := newTestEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := e.hub.Subscribe(ctx, realtime.GroupTopic(g.ID))
	require.NoError(t, err)

	msg, err := e.messages.SendGroupMessage(context.Background(), g.ID, a.ID, "hello", "")
	require.NoError(t, err)
	select {
	case ev := <-sub.Events():
		assert.Equal(t, realtime.KindInsert, ev.Kind)
		assert.Equal(t, msg.ID, ev.ID)
		assert.Contains(t, string(ev.Payload), "hello")
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription not closed with its context")
	}
	assert.Equal(t, 0, e.hub.Subscribers(realtime.GroupTopic(g.ID)))
}

func TestDirectMessages_FriendsOnly(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	_, err := e.messages.SendDirectMessage(ctx, a.ID, b.ID, "hi", "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	befriend(t, e, a.ID, b.ID)
	_, err = e.messages.SendDirectMessage(ctx, a.ID, b.ID, "hi", "")
	require.NoError(t, err)
	_, err = e.messages.SendDirectMessage(ctx, b.ID, a.ID, "hey", "")
	require.NoError(t, err)
	_, err = e.messages.SendDirectMessage(ctx, a.ID, b.ID, "how are you", "")
	require.NoError(t, err)

	list, err := e.messages.ListDirectMessages(ctx, b.ID, a.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "hi", list[0].Content)
	assert.Equal(t, "how are you", list[2].Content)

	n, err := e.messages.MarkConversationRead(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	n, err = e.messages.MarkConversationRead(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestAuthorizeTopic(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	g := testutil.CreateGroup(t, e.db, "g", a.ID)

	_, err := e.messages.AuthorizeTopic(ctx, a.ID, realtime.GroupTopic(g.ID))
	assert.NoError(t, err)
	_, err = e.messages.AuthorizeTopic(ctx, b.ID, realtime.GroupTopic(g.ID))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.messages.AuthorizeTopic(ctx, b.ID, realtime.DirectTopic(b.ID, a.ID))
	assert.NoError(t, err)
	_, err = e.messages.AuthorizeTopic(ctx, b.ID, realtime.DirectTopic(a.ID, 99))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.messages.AuthorizeTopic(ctx, a.ID, realtime.UserTopic(a.ID))
	assert.NoError(t, err)
	_, err = e.messages.AuthorizeTopic(ctx, b.ID, realtime.UserTopic(a.ID))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.messages.AuthorizeTopic(ctx, a.ID, realtime.GroupTopic(9999))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.messages.ListGroupMessages(ctx, 9999, a.ID, 0, 10)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.messages.AuthorizeTopic(ctx, a.ID, "bogus")
	assert.ErrorIs(t, err, ErrValidation)
}
