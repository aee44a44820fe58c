package mysql

import (
	"context"

	"Uni_Connect/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

// ListByUser 收件箱，新的在前
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	var list []model.Notification
	q := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&list).Error
	return list, err
}

// FindOwned 只能读取属于自己的通知
func (r *NotificationRepository) FindOwned(ctx context.Context, userID, id uint64) (*model.Notification, error) {
	var n model.Notification
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	return &n, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND `read` = ?", id, userID, false).
		Update("read", true).Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Update("read", true)
	return tx.RowsAffected, tx.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Notification{})
	return tx.RowsAffected, tx.Error
}

func (r *NotificationRepository) DeleteAll(ctx context.Context, userID uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Notification{})
	return tx.RowsAffected, tx.Error
}

// CountUnread 未读数始终由查询推导，不单独存储
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Count(&n).Error
	return n, err
}
