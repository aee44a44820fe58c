package service

import (
	"context"
	"testing"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/realtime"
	"Uni_Connect/internal/repository/mysql"
	"Uni_Connect/internal/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	hub      *realtime.Hub
	notifier *NotificationService
	groups   *GroupService
	joins    *JoinRequestService
	friends  *FriendService
	messages *MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	hub := realtime.NewHub()
	log := zap.NewNop()
	notifier := NewNotificationService(db, hub, log)
	return &testEnv{
		db:       db,
		hub:      hub,
		notifier: notifier,
		groups:   NewGroupService(db, notifier, log),
		joins:    NewJoinRequestService(db, notifier, log),
		friends:  NewFriendService(db, notifier, log),
		messages: NewMessageService(db, hub, log),
	}
}

func (e *testEnv) inbox(t *testing.T, userID uint64) []model.Notification {
	t.Helper()
	list, err := e.notifier.FetchInbox(context.Background(), userID)
	require.NoError(t, err)
	return list
}

func (e *testEnv) joinRequest(t *testing.T, id uint64) *model.JoinRequest {
	t.Helper()
	req, err := (&mysql.JoinRequestRepository{DB: e.db}).FindByID(context.Background(), id)
	require.NoError(t, err)
	return req
}

func (e *testEnv) countRows(t *testing.T, m any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Where(query, args...).Count(&n).Error)
	return n
}

func actions(t *testing.T, list []model.Notification) []model.Action {
	t.Helper()
	out := make([]model.Action, 0, len(list))
	for i := range list {
		meta, err := list[i].Meta()
		require.NoError(t, err)
		if meta == nil {
			out = append(out, "")
			continue
		}
		out = append(out, meta.Kind())
	}
	return out
}
