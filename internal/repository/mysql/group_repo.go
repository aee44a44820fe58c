package mysql

import (
	"context"

	"Uni_Connect/internal/model"

	"gorm.io/gorm"
)

type GroupRepository struct {
	DB *gorm.DB
}

// Create 建群并让创建者以 admin 身份入群，调用方负责开启事务
func (r *GroupRepository) Create(ctx context.Context, g *model.Group) error {
	if err := r.DB.WithContext(ctx).Create(g).Error; err != nil {
		return err
	}
	mRepo := &MemberRepository{DB: r.DB}
	_, err := mRepo.Join(ctx, &model.GroupMember{
		GroupID: g.ID,
		UserID:  g.CreatedBy,
		Role:    model.RoleAdmin,
	})
	return err
}

func (r *GroupRepository) FindByID(ctx context.Context, id uint64) (*model.Group, error) {
	var g model.Group
	err := r.DB.WithContext(ctx).First(&g, id).Error
	return &g, err
}

func (r *GroupRepository) List(ctx context.Context, offset, limit int) ([]model.Group, error) {
	var list []model.Group
	err := r.DB.WithContext(ctx).Order("id desc").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

// ListByUser 用户所在的群
func (r *GroupRepository) ListByUser(ctx context.Context, userID uint64) ([]model.Group, error) {
	var list []model.Group
	err := r.DB.WithContext(ctx).
		Where("id IN (?)", r.DB.Model(&model.GroupMember{}).Select("group_id").Where("user_id = ?", userID)).
		Order("id desc").
		Find(&list).Error
	return list, err
}

// Update 按字段更新，patch 的 key 为列名
func (r *GroupRepository) Update(ctx context.Context, id uint64, patch map[string]any) error {
	return r.DB.WithContext(ctx).Model(&model.Group{}).Where("id = ?", id).Updates(patch).Error
}

func (r *GroupRepository) SetSecondaryAdmins(ctx context.Context, id uint64, ids []uint64) error {
	g := model.Group{ID: id, SecondaryAdmins: ids}
	return r.DB.WithContext(ctx).Model(&g).Select("secondary_admins").Updates(&g).Error
}

func (r *GroupRepository) SetAdmin(ctx context.Context, id, adminID uint64) error {
	return r.DB.WithContext(ctx).Model(&model.Group{}).Where("id = ?", id).Update("admin_id", adminID).Error
}

// Delete 硬删除：消息 -> 成员 -> 入群申请 -> 群，调用方负责开启事务
func (r *GroupRepository) Delete(ctx context.Context, id uint64) (int64, error) {
	db := r.DB.WithContext(ctx)
	if err := db.Where("group_id = ?", id).Delete(&model.GroupMessage{}).Error; err != nil {
		return 0, err
	}
	if err := db.Where("group_id = ?", id).Delete(&model.GroupMember{}).Error; err != nil {
		return 0, err
	}
	if err := db.Where("group_id = ?", id).Delete(&model.JoinRequest{}).Error; err != nil {
		return 0, err
	}
	tx := db.Delete(&model.Group{}, id)
	return tx.RowsAffected, tx.Error
}
