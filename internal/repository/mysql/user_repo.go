package mysql

import (
	"context"

	"Uni_Connect/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

// FindByUsername 支持用户名或邮箱登录
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ? OR email = ?", username, username).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var usr model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&usr).Error
	return &usr, err
}

// FindByIDs 批量取资料，结果无序
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint64) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []model.User
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error
	return list, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, user *model.User, newPassword string) error {
	return r.DB.WithContext(ctx).Model(user).Update("password", newPassword).Error
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id uint64, patch map[string]any) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(patch).Error
}

// Search 按用户名或学校模糊搜索
func (r *UserRepository) Search(ctx context.Context, term string, excludeID uint64, limit int) ([]model.User, error) {
	like := "%" + term + "%"
	var list []model.User
	err := r.DB.WithContext(ctx).
		Where("id <> ?", excludeID).
		Where("username LIKE ? OR university LIKE ?", like, like).
		Order("username ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// Suggestions 同校优先的推荐，排除 exclude 中的用户
func (r *UserRepository) Suggestions(ctx context.Context, university string, exclude []uint64, limit int) ([]model.User, error) {
	var list []model.User
	q := r.DB.WithContext(ctx)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	err := q.
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN university = ? THEN 0 ELSE 1 END, id DESC",
			Vars:               []any{university},
			WithoutParentheses: true,
		}}).
		Limit(limit).
		Find(&list).Error
	return list, err
}
