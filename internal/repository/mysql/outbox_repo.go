package mysql

import (
	"context"
	"encoding/json"
	"time"

	"Uni_Connect/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 领域事件类型
const (
	EventJoinRequested   = "join_requested"
	EventJoinApproved    = "join_approved"
	EventJoinRejected    = "join_rejected"
	EventMemberRemoved   = "member_removed"
	EventMemberAdded     = "member_added"
	EventGroupDeleted    = "group_deleted"
	EventFriendRequested = "friend_request"
	EventFriendAccepted  = "friend_accept"
	EventUnfriend        = "unfriend"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// Insert 写outbox事件表，需与业务写入在同一个事务里调用
func (r *OutboxRepository) Insert(ctx context.Context, event string, aggregateID, actorID uint64, fields map[string]any) error {
	body := map[string]any{
		"event_time":   time.Now().UTC().Format(time.RFC3339Nano),
		"aggregate_id": aggregateID,
		"actor_id":     actorID,
	}
	for k, v := range fields {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	ob := &model.Outbox{
		EventID:     uuid.NewString(),
		EventType:   event,
		AggregateID: aggregateID,
		ActorID:     actorID,
		Payload:     string(payload),
		Status:      model.OutboxPending,
	}
	return r.DB.WithContext(ctx).Create(ob).Error
}

// List outbox查询，失败的记录在重试次数内也会再次投递
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.Outbox, error) {
	var list []model.Outbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate outbox记录消息失败重试
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.Outbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate outbox成功记录消息更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.Outbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}
