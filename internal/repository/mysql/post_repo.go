package mysql

import (
	"context"
	"time"

	"Uni_Connect/internal/model"

	"gorm.io/gorm"
)

type PostRepository struct {
	DB *gorm.DB
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Create(post).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).First(&post, "id = ? AND status = ?", id, model.PostNormal).Error
	return &post, err
}

// ListFeedCursor 基于时间游标的查询：索引 (created_at DESC, id DESC)
// lastCreatedAt 为零值表示第一页；否则用 (created_at, id) 作为严格游标
func (r *PostRepository) ListFeedCursor(ctx context.Context, lastID uint64, lastCreatedAt time.Time, limit int) ([]model.Post, error) {
	var list []model.Post
	q := r.DB.WithContext(ctx).Where("status = ?", model.PostNormal)
	if !lastCreatedAt.IsZero() {
		// 先比时间，再在同一时间点用 id 打破并列
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", lastCreatedAt, lastCreatedAt, lastID)
	}
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID uint64, offset, limit int) ([]model.Post, error) {
	var list []model.Post
	err := r.DB.WithContext(ctx).
		Where("author_id = ? AND status = ?", authorID, model.PostNormal).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

// DeleteByAuthor 软删除，仅作者本人；已删除返回 0
func (r *PostRepository) DeleteByAuthor(ctx context.Context, postID, authorID uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("id = ? AND author_id = ? AND status = ?", postID, authorID, model.PostNormal).
		Update("status", model.PostDeleted)
	return tx.RowsAffected, tx.Error
}
