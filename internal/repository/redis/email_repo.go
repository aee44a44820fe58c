package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultEmailCodeTTL = 5 * time.Minute
	EmailCodePrefix     = "email:code"

	// 两阶段键
	PendingSuffix   = "pending"
	ConfirmedSuffix = "confirmed"
)

var (
	ErrEmailNotFound       = errors.New("email not found")
	ErrEmailCodeDelFailed  = errors.New("email code delete failed")
	ErrCodePendingFailed   = errors.New("code pending failed")
	ErrCodeConfirmedFailed = errors.New("code confirmed failed")
)

// 取值+写入目标+设置 TTL+删除源，原子执行
var confirmScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
redis.call("SET", KEYS[2], val, "PX", ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

// EmailCodeRepository 验证码两阶段存储：pending（待发送） -> confirmed（已发出，可校验）
// 键格式 email:code:<scope>:<phase>:<email>
type EmailCodeRepository struct {
	Client *redis.Client
}

func (r *EmailCodeRepository) key(scope, phase, email string) string {
	return fmt.Sprintf("%s:%s:%s:%s", EmailCodePrefix, scope, phase, email)
}

func (r *EmailCodeRepository) SavePending(ctx context.Context, scope, email, code string) error {
	if err := r.Client.Set(ctx, r.key(scope, PendingSuffix, email), code, DefaultEmailCodeTTL).Err(); err != nil {
		return ErrCodePendingFailed
	}
	return nil
}

// Confirm 邮件发送成功后将 pending 转为 confirmed（重置 TTL）
func (r *EmailCodeRepository) Confirm(ctx context.Context, scope, email string) error {
	src := r.key(scope, PendingSuffix, email)
	dst := r.key(scope, ConfirmedSuffix, email)
	px := int64(DefaultEmailCodeTTL / time.Millisecond)
	ok, err := confirmScript.Run(ctx, r.Client, []string{src, dst}, px).Int()
	if err != nil || ok != 1 {
		return ErrCodeConfirmedFailed
	}
	return nil
}

// DeletePending 删除 pending 键（幂等）
func (r *EmailCodeRepository) DeletePending(ctx context.Context, scope, email string) error {
	if err := r.Client.Del(ctx, r.key(scope, PendingSuffix, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}

// GetConfirmed 获取 confirmed 的验证码（校验时使用）
func (r *EmailCodeRepository) GetConfirmed(ctx context.Context, scope, email string) (string, error) {
	val, err := r.Client.Get(ctx, r.key(scope, ConfirmedSuffix, email)).Result()
	if err != nil {
		return "", ErrEmailNotFound
	}
	return val, nil
}

// DeleteConfirmed 校验通过后作废，验证码只能用一次
func (r *EmailCodeRepository) DeleteConfirmed(ctx context.Context, scope, email string) error {
	if err := r.Client.Del(ctx, r.key(scope, ConfirmedSuffix, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}
