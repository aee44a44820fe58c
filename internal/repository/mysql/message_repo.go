package mysql

import (
	"context"

	"Uni_Connect/internal/model"

	"gorm.io/gorm"
)

type MessageRepository struct {
	DB *gorm.DB
}

func (r *MessageRepository) CreateGroupMessage(ctx context.Context, msg *model.GroupMessage) error {
	return r.DB.WithContext(ctx).Create(msg).Error
}

// ListGroupMessages 升序返回 afterID 之后的消息，afterID=0 表示从头
func (r *MessageRepository) ListGroupMessages(ctx context.Context, groupID, afterID uint64, limit int) ([]model.GroupMessage, error) {
	var list []model.GroupMessage
	q := r.DB.WithContext(ctx).Where("group_id = ?", groupID)
	if afterID > 0 {
		q = q.Where("id > ?", afterID)
	}
	err := q.Order("id ASC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *MessageRepository) FindGroupMessage(ctx context.Context, groupID, id uint64) (*model.GroupMessage, error) {
	var msg model.GroupMessage
	err := r.DB.WithContext(ctx).Where("id = ? AND group_id = ?", id, groupID).First(&msg).Error
	return &msg, err
}

func (r *MessageRepository) DeleteGroupMessage(ctx context.Context, groupID, id uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Where("id = ? AND group_id = ?", id, groupID).Delete(&model.GroupMessage{})
	return tx.RowsAffected, tx.Error
}

func (r *MessageRepository) CreateDirectMessage(ctx context.Context, msg *model.DirectMessage) error {
	return r.DB.WithContext(ctx).Create(msg).Error
}

// ListDirectMessages 两人之间的会话，升序
func (r *MessageRepository) ListDirectMessages(ctx context.Context, a, b, afterID uint64, limit int) ([]model.DirectMessage, error) {
	var list []model.DirectMessage
	q := r.DB.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a)
	if afterID > 0 {
		q = q.Where("id > ?", afterID)
	}
	err := q.Order("id ASC").Limit(limit).Find(&list).Error
	return list, err
}

// MarkConversationRead 将 peer 发给 userID 的未读消息标记为已读
func (r *MessageRepository) MarkConversationRead(ctx context.Context, userID, peerID uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.DirectMessage{}).
		Where("sender_id = ? AND receiver_id = ? AND `read` = ?", peerID, userID, false).
		Update("read", true)
	return tx.RowsAffected, tx.Error
}
