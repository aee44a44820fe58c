package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/realtime"
	"Uni_Connect/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func notify(t *testing.T, e *testEnv, userID uint64, title string) *model.Notification {
	t.Helper()
	n, err := model.NewNotification(userID, model.NotificationInfo, title, "", nil)
	require.NoError(t, err)
	require.Equal(t, 1, e.notifier.Notify(context.Background(), n))
	return n
}

func unread(t *testing.T, e *testEnv, userID uint64) int64 {
	t.Helper()
	n, err := e.notifier.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	return n
}

func TestClear_UnreadCountFollowsInbox(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, e.db, "alice")

	only := notify(t, e, u.ID, "hello")
	assert.EqualValues(t, 1, unread(t, e, u.ID))
	require.NoError(t, e.notifier.Clear(ctx, u.ID, only.ID))
	assert.EqualValues(t, 0, unread(t, e, u.ID))

	read := notify(t, e, u.ID, "read one")
	notify(t, e, u.ID, "unread one")
	require.NoError(t, e.notifier.MarkRead(ctx, u.ID, read.ID))
	assert.EqualValues(t, 1, unread(t, e, u.ID))
	require.NoError(t, e.notifier.Clear(ctx, u.ID, read.ID))
	assert.EqualValues(t, 1, unread(t, e, u.ID))

	assert.ErrorIs(t, e.notifier.Clear(ctx, u.ID, read.ID), ErrNotFound)
}

func TestMarkRead_IdempotentAndOwned(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	n := notify(t, e, a.ID, "hi")

	require.NoError(t, e.notifier.MarkRead(ctx, a.ID, n.ID))
	require.NoError(t, e.notifier.MarkRead(ctx, a.ID, n.ID))
	assert.EqualValues(t, 0, unread(t, e, a.ID))

	assert.ErrorIs(t, e.notifier.MarkRead(ctx, b.ID, n.ID), ErrNotFound)
	assert.ErrorIs(t, e.notifier.Clear(ctx, b.ID, n.ID), ErrNotFound)
	assert.Len(t, e.inbox(t, a.ID), 1)
}

func TestInbox_NewestFirstAndBulkOps(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	first := notify(t, e, a.ID, "first")
	second := notify(t, e, a.ID, "second")
	notify(t, e, b.ID, "other")

	list := e.inbox(t, a.ID)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	n, err := e.notifier.MarkAllRead(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.EqualValues(t, 0, unread(t, e, a.ID))
	assert.EqualValues(t, 1, unread(t, e, b.ID))

	n, err = e.notifier.ClearAll(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Empty(t, e.inbox(t, a.ID))
	assert.Len(t, e.inbox(t, b.ID), 1)
}

func TestFanout_DedupesAndSkipsInvalid(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	meta := model.NewGroupEventMetadata(model.ActionGroupRenamed, 1, 0)
	got := e.notifier.Fanout(ctx, []uint64{a.ID, b.ID, a.ID, 0}, model.NotificationInfo, "t", "c", meta)
	assert.Equal(t, 2, got)
	assert.Len(t, e.inbox(t, a.ID), 1)

	bad := model.NewGroupEventMetadata(model.ActionMemberAdded, 1, 0)
	assert.Equal(t, 0, e.notifier.Fanout(ctx, []uint64{a.ID}, model.NotificationInfo, "t", "c", bad))
}

func TestNotify_PublishesToUserTopic(t *testing.T) {
	e := newTestEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := e.hub.Subscribe(ctx, realtime.UserTopic(a.ID))
	require.NoError(t, err)

	n := notify(t, e, a.ID, "live")
	select {
	case ev := <-sub.Events():
		assert.Equal(t, realtime.KindInsert, ev.Kind)
		assert.Equal(t, n.ID, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	require.NoError(t, e.notifier.Clear(context.Background(), a.ID, n.ID))
	select {
	case ev := <-sub.Events():
		assert.Equal(t, realtime.KindDelete, ev.Kind)
		assert.Equal(t, n.ID, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("no delete event delivered")
	}
}

func TestFetchInbox_CorruptMetadataLogged(t *testing.T) {
	db := testutil.NewDB(t)
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewNotificationService(db, realtime.NewHub(), zap.New(core))
	u := testutil.CreateUser(t, db, "alice")

	bad := &model.Notification{UserID: u.ID, Type: model.NotificationInfo, Title: "broken", MetadataJSON: `{"action":"teleported"}`}
	require.NoError(t, db.Create(bad).Error)

	list, err := svc.FetchInbox(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	entries := logs.FilterMessage("corrupt notification metadata").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, bad.ID, entries[0].ContextMap()["id"])

	raw, err := json.Marshal(list[0])
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "broken", out["title"])
	assert.NotContains(t, out, "metadata")
}
