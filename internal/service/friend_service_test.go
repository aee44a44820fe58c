package service

import (
	"context"
	"testing"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func befriend(t *testing.T, e *testEnv, a, b uint64) {
	t.Helper()
	ctx := context.Background()
	req, err := e.friends.SendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = e.friends.Respond(ctx, req.ID, b, true)
	require.NoError(t, err)
}

func TestFriendRequest_Lifecycle(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	_, err := e.friends.SendRequest(ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, ErrValidation)

	req, err := e.friends.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Action{model.ActionFriendRequested}, actions(t, e.inbox(t, b.ID)))

	// 任一方向已有 pending 都算重复
	_, err = e.friends.SendRequest(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	_, err = e.friends.SendRequest(ctx, b.ID, a.ID)
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	incoming, err := e.friends.ListIncoming(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].User.Username)
	outgoing, err := e.friends.ListOutgoing(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, "bob", outgoing[0].User.Username)

	// 只有接收方可以处理
	_, err = e.friends.Respond(ctx, req.ID, a.ID, true)
	assert.ErrorIs(t, err, ErrUnauthorized)

	accepted, err := e.friends.Respond(ctx, req.ID, b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.FriendRequestAccepted, accepted.Status)
	assert.Contains(t, actions(t, e.inbox(t, a.ID)), model.ActionFriendAccepted)

	_, err = e.friends.Respond(ctx, req.ID, b.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := e.friends.AreFriends(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = e.friends.SendRequest(ctx, b.ID, a.ID)
	assert.ErrorIs(t, err, ErrConflict)

	friends, err := e.friends.ListFriends(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, b.ID, friends[0].ID)
}

func TestFriendRequest_RejectThenRetry(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	req, err := e.friends.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	rejected, err := e.friends.Respond(ctx, req.ID, b.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.FriendRequestRejected, rejected.Status)

	ok, err := e.friends.AreFriends(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.friends.SendRequest(ctx, a.ID, b.ID)
	assert.NoError(t, err)
}

func TestRemoveFriend(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	befriend(t, e, a.ID, b.ID)

	require.NoError(t, e.friends.RemoveFriend(ctx, b.ID, a.ID))
	ok, err := e.friends.AreFriends(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, e.friends.RemoveFriend(ctx, b.ID, a.ID), ErrNotFound)
}

func TestSuggestions_ExcludeSelfFriendsAndPending(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	c := testutil.CreateUser(t, e.db, "carol")
	d := testutil.CreateUser(t, e.db, "dave")
	other := testutil.CreateUser(t, e.db, "erin")
	require.NoError(t, e.db.Model(&model.User{}).Where("id = ?", other.ID).Update("university", "Elsewhere").Error)

	befriend(t, e, a.ID, b.ID)
	_, err := e.friends.SendRequest(ctx, c.ID, a.ID)
	require.NoError(t, err)

	list, err := e.friends.Suggestions(ctx, a.ID, 10)
	require.NoError(t, err)
	ids := make([]uint64, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	// 同校优先
	assert.Equal(t, []uint64{d.ID, other.ID}, ids)
}
