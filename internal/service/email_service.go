package service

import (
	"context"
	"fmt"

	"Uni_Connect/internal/pkg"
	"Uni_Connect/internal/repository/redis"

	"go.uber.org/zap"
)

// 验证码用途
const (
	ScopeRegister = "register"
	ScopeReset    = "reset"
)

var scopeSubjects = map[string][2]string{
	ScopeRegister: {"注册验证", "注册验证码"},
	ScopeReset:    {"重置密码", "密码重置验证码"},
}

// CodeStore 验证码的两阶段存储，见 redis.EmailCodeRepository
type CodeStore interface {
	SavePending(ctx context.Context, scope, email, code string) error
	Confirm(ctx context.Context, scope, email string) error
	DeletePending(ctx context.Context, scope, email string) error
	GetConfirmed(ctx context.Context, scope, email string) (string, error)
	DeleteConfirmed(ctx context.Context, scope, email string) error
}

type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type EmailService struct {
	codes  CodeStore
	mailer Mailer
	log    *zap.Logger
}

func NewEmailService(codes CodeStore, mailer Mailer, log *zap.Logger) *EmailService {
	return &EmailService{codes: codes, mailer: mailer, log: log}
}

// SendCode 先写 pending，邮件发出后再转为 confirmed；发送失败时 pending 自然过期
func (s *EmailService) SendCode(ctx context.Context, scope, email string) error {
	subjects, ok := scopeSubjects[scope]
	if !ok {
		return validation("unknown code scope %q", scope)
	}
	if !validEmail(email) {
		return validation("invalid email")
	}
	code, err := pkg.RandDigits(6)
	if err != nil {
		return err
	}
	if err = s.codes.SavePending(ctx, scope, email, code); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	html := pkg.EmailCodeHTML(subjects[0], code, redis.DefaultEmailCodeTTL)
	if err = s.mailer.Send(email, subjects[1], html); err != nil {
		s.log.Warn("send code mail failed", zap.String("scope", scope), zap.Error(err))
		return fmt.Errorf("%w: send mail: %w", ErrStoreUnavailable, err)
	}

	if err = s.codes.Confirm(ctx, scope, email); err != nil {
		_ = s.codes.DeletePending(ctx, scope, email)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// VerifyCode 校验通过后一次性删除
func (s *EmailService) VerifyCode(ctx context.Context, scope, email, code string) (bool, error) {
	val, err := s.codes.GetConfirmed(ctx, scope, email)
	if err != nil {
		// 不存在或已过期
		return false, nil
	}
	if val != code {
		return false, nil
	}
	if err = s.codes.DeleteConfirmed(ctx, scope, email); err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return true, nil
}
