package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAlreadyMember    = errors.New("already a member")
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrLimitExceeded    = errors.New("limit exceeded")
	ErrConflict         = errors.New("conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrValidation       = errors.New("validation error")
)

var sentinels = []error{
	ErrNotFound, ErrUnauthorized, ErrAlreadyMember, ErrDuplicateRequest,
	ErrLimitExceeded, ErrConflict, ErrStoreUnavailable, ErrValidation,
}

// storeErr 记录不存在归为 ErrNotFound，已分类的错误原样返回，其余归为 ErrStoreUnavailable
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, what, err)
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// pageBounds 统一的分页参数校正
func pageBounds(page, size int) (offset, limit int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	return (page - 1) * size, size
}
