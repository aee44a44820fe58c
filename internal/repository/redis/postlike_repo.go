package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	LikeSetTTL       = 24 * time.Hour
	LikeCntTTL       = 24 * time.Hour
	LockTTL          = 300 * time.Millisecond
	LikeSetKeyPrefix = "like:set:post"  // 存放某个帖子已点赞的用户ID集合
	LikeCntKeyPrefix = "like:cnt:post"  // 缓存某个帖子的点赞计数
	LockKeyPrefix    = "lock:like:post" // 回填计数的分布式锁
)

type LikeCacheRepository struct {
	Client *redis.Client

	likeSetTTL time.Duration
	likeCntTTL time.Duration
}

func NewLikeCacheRepository(client *redis.Client) *LikeCacheRepository {
	return &LikeCacheRepository{
		Client:     client,
		likeSetTTL: LikeSetTTL,
		likeCntTTL: LikeCntTTL,
	}
}

func (r *LikeCacheRepository) likeSetKey(postID uint64) string {
	return fmt.Sprintf("%s:%d", LikeSetKeyPrefix, postID)
}

func (r *LikeCacheRepository) likeCntKey(postID uint64) string {
	return fmt.Sprintf("%s:%d", LikeCntKeyPrefix, postID)
}

// AddLike 写路径：成功写MySQL后再调用
func (r *LikeCacheRepository) AddLike(ctx context.Context, userID, postID uint64) error {
	k := r.likeSetKey(postID)
	if err := r.Client.SAdd(ctx, k, userID).Err(); err != nil {
		return err
	}
	_ = r.Client.Expire(ctx, k, r.likeSetTTL).Err()

	// 计数只在已缓存时自增，未缓存交给读路径回填
	ck := r.likeCntKey(postID)
	if n, _ := r.Client.Exists(ctx, ck).Result(); n == 0 {
		return nil
	}
	if err := r.Client.Incr(ctx, ck).Err(); err != nil {
		return err
	}
	_ = r.Client.Expire(ctx, ck, r.likeCntTTL).Err()
	return nil
}

func (r *LikeCacheRepository) RemoveLike(ctx context.Context, userID, postID uint64) error {
	if err := r.Client.SRem(ctx, r.likeSetKey(postID), userID).Err(); err != nil {
		return err
	}
	ck := r.likeCntKey(postID)
	// 计数防负数
	return r.Client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, ck).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if val <= 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Decr(ctx, ck)
			return nil
		})
		return err
	}, ck)
}

// IsLikedCached 第二个返回值表示缓存是否命中
func (r *LikeCacheRepository) IsLikedCached(ctx context.Context, userID, postID uint64) (bool, bool, error) {
	k := r.likeSetKey(postID)
	exists, err := r.Client.Exists(ctx, k).Result()
	if err != nil {
		return false, false, err
	}
	if exists == 0 {
		return false, false, nil
	}
	b, err := r.Client.SIsMember(ctx, k, userID).Result()
	return b, true, err
}

func (r *LikeCacheRepository) GetLikeCountCached(ctx context.Context, postID uint64) (int64, bool, error) {
	val, err := r.Client.Get(ctx, r.likeCntKey(postID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	return val, err == nil, err
}

// SetLikeCount 回填帖子点赞数
func (r *LikeCacheRepository) SetLikeCount(ctx context.Context, postID uint64, cnt int64) error {
	return r.Client.Set(ctx, r.likeCntKey(postID), cnt, r.likeCntTTL).Err()
}

// WarmIsLiked 惰性回填：只在集合已存在时写，避免集合无界扩张
func (r *LikeCacheRepository) WarmIsLiked(ctx context.Context, userID, postID uint64, liked bool) {
	k := r.likeSetKey(postID)
	if ok, _ := r.Client.Exists(ctx, k).Result(); ok > 0 {
		if liked {
			_ = r.Client.SAdd(ctx, k, userID).Err()
		} else {
			_ = r.Client.SRem(ctx, k, userID).Err()
		}
		_ = r.Client.Expire(ctx, k, r.likeSetTTL).Err()
	}
}

// DeleteCount 删除计数缓存与点赞集合，帖子删除时调用
func (r *LikeCacheRepository) DeleteCount(ctx context.Context, postID uint64) error {
	err := r.Client.Del(ctx, r.likeCntKey(postID), r.likeSetKey(postID)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// AcquireFill 回填计数前加锁，防止缓存击穿时并发回源
func (r *LikeCacheRepository) AcquireFill(ctx context.Context, postID uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, postID)
	return r.Client.SetNX(ctx, key, token, LockTTL).Result()
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// ReleaseFill 用lua保证只释放自己持有的锁
func (r *LikeCacheRepository) ReleaseFill(ctx context.Context, postID uint64, token string) error {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, postID)
	return releaseScript.Run(ctx, r.Client, []string{key}, token).Err()
}
