package mysql

import (
	"context"

	"Uni_Connect/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MemberRepository struct {
	DB *gorm.DB
}

// Join 幂等插入：若已存在 (group_id, user_id) 则不报错，返回是否真正插入
func (r *MemberRepository) Join(ctx context.Context, member *model.GroupMember) (bool, error) {
	tx := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member)
	return tx.RowsAffected > 0, tx.Error
}

func (r *MemberRepository) Leave(ctx context.Context, groupID, userID uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&model.GroupMember{})
	return tx.RowsAffected, tx.Error
}

// Find 未找到返回 gorm.ErrRecordNotFound
func (r *MemberRepository) Find(ctx context.Context, groupID, userID uint64) (*model.GroupMember, error) {
	var m model.GroupMember
	err := r.DB.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&m).Error
	return &m, err
}

func (r *MemberRepository) IsMember(ctx context.Context, groupID, userID uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *MemberRepository) Count(ctx context.Context, groupID uint64) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	return count, err
}

// ListByRoles 按角色取成员，用于通知管理员
func (r *MemberRepository) ListByRoles(ctx context.Context, groupID uint64, roles ...model.GroupRole) ([]model.GroupMember, error) {
	var list []model.GroupMember
	q := r.DB.WithContext(ctx).Where("group_id = ?", groupID)
	if len(roles) > 0 {
		q = q.Where("role IN ?", roles)
	}
	err := q.Order("id ASC").Find(&list).Error
	return list, err
}

// ListByUsers 取指定用户在群内的成员记录
func (r *MemberRepository) ListByUsers(ctx context.Context, groupID uint64, userIDs []uint64) ([]model.GroupMember, error) {
	var list []model.GroupMember
	err := r.DB.WithContext(ctx).
		Where("group_id = ? AND user_id IN ?", groupID, userIDs).
		Find(&list).Error
	return list, err
}

func (r *MemberRepository) SetRole(ctx context.Context, groupID uint64, userIDs []uint64, role model.GroupRole) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id IN ?", groupID, userIDs).
		Update("role", role)
	return tx.RowsAffected, tx.Error
}

// DemoteSecondaryAdmins 把不在 keep 中的副管理员降为普通成员
func (r *MemberRepository) DemoteSecondaryAdmins(ctx context.Context, groupID uint64, keep []uint64) error {
	q := r.DB.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND role = ?", groupID, model.RoleSecondaryAdmin)
	if len(keep) > 0 {
		q = q.Where("user_id NOT IN ?", keep)
	}
	return q.Update("role", model.RoleMember).Error
}
