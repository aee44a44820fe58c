package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxPostRunes = 5000

type PostService struct {
	repo      *mysql.PostRepository
	likeCache LikeCache
	log       *zap.Logger
}

// NewPostService likeCache 可以为 nil
func NewPostService(db *gorm.DB, likeCache LikeCache, log *zap.Logger) *PostService {
	return &PostService{
		repo:      &mysql.PostRepository{DB: db},
		likeCache: likeCache,
		log:       log,
	}
}

// PostCursor 时间游标，零值表示第一页
type PostCursor struct {
	LastID        uint64    `json:"last_id"`
	LastCreatedAt time.Time `json:"last_created_at"`
}

func (s *PostService) Create(ctx context.Context, authorID uint64, content, imageURL string) (*model.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" && imageURL == "" {
		return nil, validation("post needs content or an image")
	}
	if utf8.RuneCountInString(content) > maxPostRunes {
		return nil, validation("post longer than %d characters", maxPostRunes)
	}
	post := &model.Post{AuthorID: authorID, Content: content, ImageURL: imageURL}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, storeErr(err, "create post")
	}
	return post, nil
}

func (s *PostService) Get(ctx context.Context, postID uint64) (*model.Post, error) {
	p, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("post %d", postID))
	}
	return p, nil
}

// Feed 游标分页；返回的 next 为 nil 表示没有更多
func (s *PostService) Feed(ctx context.Context, cursor PostCursor, size int) ([]model.Post, *PostCursor, error) {
	if size <= 0 || size > 50 {
		size = 20
	}
	list, err := s.repo.ListFeedCursor(ctx, cursor.LastID, cursor.LastCreatedAt, size)
	if err != nil {
		return nil, nil, storeErr(err, "list feed")
	}
	if len(list) < size {
		return list, nil, nil
	}
	last := list[len(list)-1]
	return list, &PostCursor{LastID: last.ID, LastCreatedAt: last.CreatedAt}, nil
}

func (s *PostService) ListByAuthor(ctx context.Context, authorID uint64, page, size int) ([]model.Post, error) {
	offset, limit := pageBounds(page, size)
	list, err := s.repo.ListByAuthor(ctx, authorID, offset, limit)
	if err != nil {
		return nil, storeErr(err, "list posts")
	}
	return list, nil
}

// Delete 幂等删除：成功或已删除均返回 nil；帖子存在但不是作者时返回 ErrUnauthorized
func (s *PostService) Delete(ctx context.Context, userID, postID uint64) error {
	affected, err := s.repo.DeleteByAuthor(ctx, postID, userID)
	if err != nil {
		return storeErr(err, "delete post")
	}
	if affected == 0 {
		_, err := s.repo.FindByID(ctx, postID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return storeErr(err, "load post")
		}
		return ErrUnauthorized
	}
	if s.likeCache != nil {
		if err := s.likeCache.DeleteCount(ctx, postID); err != nil {
			s.log.Warn("drop like cache", zap.Uint64("post_id", postID), zap.Error(err))
		}
	}
	return nil
}
