package mysql

import (
	"context"
	"time"

	"Uni_Connect/internal/model"

	"gorm.io/gorm"
)

type JoinRequestRepository struct {
	DB *gorm.DB
}

func (r *JoinRequestRepository) Create(ctx context.Context, req *model.JoinRequest) error {
	return r.DB.WithContext(ctx).Create(req).Error
}

func (r *JoinRequestRepository) FindByID(ctx context.Context, id uint64) (*model.JoinRequest, error) {
	var req model.JoinRequest
	err := r.DB.WithContext(ctx).First(&req, id).Error
	return &req, err
}

// FindPending 同一 (group,user) 至多一条 pending；这是唯一的重复申请判定入口
func (r *JoinRequestRepository) FindPending(ctx context.Context, groupID, userID uint64) (*model.JoinRequest, error) {
	var req model.JoinRequest
	err := r.DB.WithContext(ctx).
		Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, model.JoinRequestPending).
		First(&req).Error
	return &req, err
}

// Latest 用户对某群最近一次申请
func (r *JoinRequestRepository) Latest(ctx context.Context, groupID, userID uint64) (*model.JoinRequest, error) {
	var req model.JoinRequest
	err := r.DB.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Order("id DESC").
		First(&req).Error
	return &req, err
}

func (r *JoinRequestRepository) ListPending(ctx context.Context, groupID uint64) ([]model.JoinRequest, error) {
	var list []model.JoinRequest
	err := r.DB.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, model.JoinRequestPending).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// Resolve 条件更新 pending -> 终态，单行原子；返回 0 表示已被处理
func (r *JoinRequestRepository) Resolve(ctx context.Context, id, resolverID uint64, status model.JoinRequestStatus) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.JoinRequest{}).
		Where("id = ? AND status = ?", id, model.JoinRequestPending).
		Updates(map[string]any{
			"status":      status,
			"pending_key": nil,
			"resolved_by": resolverID,
			"updated_at":  time.Now(),
		})
	return tx.RowsAffected, tx.Error
}
