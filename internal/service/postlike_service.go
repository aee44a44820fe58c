package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Uni_Connect/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LikeCache 点赞集合与计数缓存，见 redis.LikeCacheRepository
type LikeCache interface {
	AddLike(ctx context.Context, userID, postID uint64) error
	RemoveLike(ctx context.Context, userID, postID uint64) error
	IsLikedCached(ctx context.Context, userID, postID uint64) (bool, bool, error)
	GetLikeCountCached(ctx context.Context, postID uint64) (int64, bool, error)
	SetLikeCount(ctx context.Context, postID uint64, cnt int64) error
	WarmIsLiked(ctx context.Context, userID, postID uint64, liked bool)
	DeleteCount(ctx context.Context, postID uint64) error
	AcquireFill(ctx context.Context, postID uint64, token string) (bool, error)
	ReleaseFill(ctx context.Context, postID uint64, token string) error
}

type PostLikeService struct {
	repo      *mysql.PostLikeRepository
	posts     *mysql.PostRepository
	likeCache LikeCache
	log       *zap.Logger
}

// NewPostLikeService likeCache 为 nil 时直接读写数据库
func NewPostLikeService(db *gorm.DB, likeCache LikeCache, log *zap.Logger) *PostLikeService {
	return &PostLikeService{
		repo:      &mysql.PostLikeRepository{DB: db},
		posts:     &mysql.PostRepository{DB: db},
		likeCache: likeCache,
		log:       log,
	}
}

func (s *PostLikeService) ensurePost(ctx context.Context, postID uint64) error {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return storeErr(err, fmt.Sprintf("post %d", postID))
	}
	return nil
}

// Like 先写库，成功后更新缓存；缓存失败只记录，由读路径回填
func (s *PostLikeService) Like(ctx context.Context, userID, postID uint64) (bool, error) {
	if err := s.ensurePost(ctx, postID); err != nil {
		return false, err
	}
	changed, err := s.repo.Like(ctx, userID, postID)
	if err != nil {
		return false, storeErr(err, "like post")
	}
	if s.likeCache == nil {
		return changed, nil
	}
	if !changed {
		// 幂等命中时，惰性回填集合
		s.likeCache.WarmIsLiked(ctx, userID, postID, true)
		return false, nil
	}
	if err := s.likeCache.AddLike(ctx, userID, postID); err != nil {
		s.log.Warn("like cache add", zap.Uint64("post_id", postID), zap.Error(err))
		_ = s.likeCache.DeleteCount(ctx, postID)
	}
	return true, nil
}

func (s *PostLikeService) Unlike(ctx context.Context, userID, postID uint64) (bool, error) {
	changed, err := s.repo.Unlike(ctx, userID, postID)
	if err != nil {
		return false, storeErr(err, "unlike post")
	}
	if s.likeCache == nil {
		return changed, nil
	}
	if !changed {
		s.likeCache.WarmIsLiked(ctx, userID, postID, false)
		return false, nil
	}
	if err := s.likeCache.RemoveLike(ctx, userID, postID); err != nil {
		s.log.Warn("like cache remove", zap.Uint64("post_id", postID), zap.Error(err))
		_ = s.likeCache.DeleteCount(ctx, postID)
	}
	return true, nil
}

func (s *PostLikeService) IsLiked(ctx context.Context, userID, postID uint64) (bool, error) {
	if s.likeCache != nil {
		if b, ok, err := s.likeCache.IsLikedCached(ctx, userID, postID); err == nil && ok {
			return b, nil
		}
	}
	b, err := s.repo.IsLiked(ctx, userID, postID)
	if err != nil {
		return false, storeErr(err, "check like")
	}
	if s.likeCache != nil {
		s.likeCache.WarmIsLiked(ctx, userID, postID, b)
	}
	return b, nil
}

// Count 缓存优先；未命中时只有拿到锁的请求回源并回填，其余短暂退避后重读
func (s *PostLikeService) Count(ctx context.Context, postID uint64) (int64, error) {
	if s.likeCache == nil {
		return s.countFromDB(ctx, postID)
	}
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
		return v, nil
	}

	token := fmt.Sprintf("%d-%d", postID, time.Now().UnixNano())
	got, _ := s.likeCache.AcquireFill(ctx, postID, token)
	if got {
		defer func() {
			if err := s.likeCache.ReleaseFill(ctx, postID, token); err != nil {
				s.log.Warn("release like fill lock", zap.Uint64("post_id", postID), zap.Error(err))
			}
		}()
		// 第二次检查
		if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
			return v, nil
		}
		v, err := s.countFromDB(ctx, postID)
		if err != nil {
			return 0, err
		}
		_ = s.likeCache.SetLikeCount(ctx, postID, v)
		return v, nil
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
		return v, nil
	}
	return s.countFromDB(ctx, postID)
}

func (s *PostLikeService) countFromDB(ctx context.Context, postID uint64) (int64, error) {
	v, err := s.repo.GetLikeCount(ctx, postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}
	if err != nil {
		return 0, storeErr(err, "count likes")
	}
	return v, nil
}
