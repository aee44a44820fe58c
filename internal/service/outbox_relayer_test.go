package service

import (
	"context"
	"errors"
	"testing"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/repository/mysql"
	"Uni_Connect/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOutboxRelayer_DrainOnce(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := &mysql.OutboxRepository{DB: db}
	require.NoError(t, repo.Insert(ctx, "group_created", 1, 10, map[string]any{"name": "a"}))
	require.NoError(t, repo.Insert(ctx, "member_joined", 2, 11, map[string]any{"user_id": 11}))

	var seen []string
	sender := func(_ context.Context, ob *model.Outbox) error {
		seen = append(seen, ob.EventType)
		if ob.AggregateID == 2 {
			return errors.New("broker down")
		}
		return nil
	}
	r := NewOutboxRelayer(db, sender, 0, 0, 2, zap.NewNop())

	sent, failed := r.drainOnce(ctx)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"group_created", "member_joined"}, seen)

	var rows []model.Outbox
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.EqualValues(t, model.OutboxSent, rows[0].Status)
	assert.EqualValues(t, model.OutboxFailed, rows[1].Status)
	assert.Equal(t, 1, rows[1].Retry)

	// 失败的记录在重试上限内会被再次投递
	seen = nil
	sent, failed = r.drainOnce(ctx)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"member_joined"}, seen)

	// 达到上限后不再投递
	seen = nil
	sent, failed = r.drainOnce(ctx)
	assert.Zero(t, sent+failed)
	assert.Empty(t, seen)
}

func TestOutboxRelayer_RunStopsWithContext(t *testing.T) {
	db := testutil.NewDB(t)
	r := NewOutboxRelayer(db, LogSender(zap.NewNop()), 0, 0, 0, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, r.Run(ctx))
}
