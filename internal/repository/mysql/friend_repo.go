package mysql

import (
	"context"
	"time"

	"Uni_Connect/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FriendRepository struct {
	DB *gorm.DB
}

func (r *FriendRepository) CreateRequest(ctx context.Context, req *model.FriendRequest) error {
	return r.DB.WithContext(ctx).Create(req).Error
}

func (r *FriendRepository) FindRequest(ctx context.Context, id uint64) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.DB.WithContext(ctx).First(&req, id).Error
	return &req, err
}

// FindPendingBetween 任一方向的 pending 申请
func (r *FriendRepository) FindPendingBetween(ctx context.Context, a, b uint64) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.DB.WithContext(ctx).
		Where("pending_key = ?", *model.FriendPendingKey(a, b)).
		First(&req).Error
	return &req, err
}

// ResolveRequest 条件更新，返回 0 表示已被处理
func (r *FriendRepository) ResolveRequest(ctx context.Context, id uint64, status model.FriendRequestStatus) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.FriendRequest{}).
		Where("id = ? AND status = ?", id, model.FriendRequestPending).
		Updates(map[string]any{
			"status":      status,
			"pending_key": nil,
			"updated_at":  time.Now(),
		})
	return tx.RowsAffected, tx.Error
}

// ListIncoming 收到的待处理申请
func (r *FriendRepository) ListIncoming(ctx context.Context, userID uint64) ([]model.FriendRequest, error) {
	var list []model.FriendRequest
	err := r.DB.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", userID, model.FriendRequestPending).
		Order("id DESC").
		Find(&list).Error
	return list, err
}

// ListOutgoing 发出的待处理申请
func (r *FriendRepository) ListOutgoing(ctx context.Context, userID uint64) ([]model.FriendRequest, error) {
	var list []model.FriendRequest
	err := r.DB.WithContext(ctx).
		Where("sender_id = ? AND status = ?", userID, model.FriendRequestPending).
		Order("id DESC").
		Find(&list).Error
	return list, err
}

// AddFriend 幂等插入好友边
func (r *FriendRepository) AddFriend(ctx context.Context, a, b uint64) (bool, error) {
	lo, hi := model.OrderedPair(a, b)
	tx := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id1"}, {Name: "user_id2"}},
		DoNothing: true,
	}).Create(&model.Friendship{UserID1: lo, UserID2: hi})
	return tx.RowsAffected > 0, tx.Error
}

func (r *FriendRepository) RemoveFriend(ctx context.Context, a, b uint64) (int64, error) {
	lo, hi := model.OrderedPair(a, b)
	tx := r.DB.WithContext(ctx).Where("user_id1 = ? AND user_id2 = ?", lo, hi).Delete(&model.Friendship{})
	return tx.RowsAffected, tx.Error
}

func (r *FriendRepository) AreFriends(ctx context.Context, a, b uint64) (bool, error) {
	lo, hi := model.OrderedPair(a, b)
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Friendship{}).
		Where("user_id1 = ? AND user_id2 = ?", lo, hi).
		Count(&n).Error
	return n > 0, err
}

// FriendIDs 某用户全部好友的 id
func (r *FriendRepository) FriendIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var rows []model.Friendship
	if err := r.DB.WithContext(ctx).
		Where("user_id1 = ? OR user_id2 = ?", userID, userID).
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(rows))
	for _, f := range rows {
		if f.UserID1 == userID {
			ids = append(ids, f.UserID2)
		} else {
			ids = append(ids, f.UserID1)
		}
	}
	return ids, nil
}

// PendingPeerIDs 与该用户存在 pending 申请的对方 id（双向）
func (r *FriendRepository) PendingPeerIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var rows []model.FriendRequest
	if err := r.DB.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, model.FriendRequestPending).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(rows))
	for _, req := range rows {
		if req.SenderID == userID {
			ids = append(ids, req.ReceiverID)
		} else {
			ids = append(ids, req.SenderID)
		}
	}
	return ids, nil
}
