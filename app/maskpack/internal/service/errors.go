package service

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/maskpack/app/maskpack/internal/store"
	"github.com/lk2023060901/maskpack/pkg/errcode"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrNotReady             = errors.New("pack not ready")
	ErrRateLimited          = errors.New("too many requests")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrColorLocked          = errors.New("color locked")
	ErrInvalidArgument      = errors.New("invalid argument")
)

// NotReadyError 充能不足
type NotReadyError struct {
	PackID       string
	Units        int
	UnitsPerPack int
	// TimeToReady 秒，已满时为 nil
	TimeToReady *int64
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("pack %s not ready: %d/%d units", e.PackID, e.Units, e.UnitsPerPack)
}

func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

// RateLimitedError 开包过于频繁
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// ConfirmationRequiredError 装备变更会让储存的卡包超出新容量
type ConfirmationRequiredError struct {
	PackID      string
	StoredPacks int
	NextCap     int
	// Excess 将被丢弃的卡包数，向上取整
	Excess int
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("pack %s stores %d packs, new cap %d drops %d",
		e.PackID, e.StoredPacks, e.NextCap, e.Excess)
}

func (e *ConfirmationRequiredError) Is(target error) bool { return target == ErrConfirmationRequired }

// notFoundError 存储层的不存在错误，同时匹配 ErrNotFound
type notFoundError struct {
	cause error
}

func (e *notFoundError) Error() string { return e.cause.Error() }

func (e *notFoundError) Unwrap() error { return e.cause }

func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

// notFound 包装存储层的不存在错误，其他错误原样返回
func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &notFoundError{cause: err}
	}
	return err
}

func invalidArgument(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// Code 错误对应的业务错误码
func Code(err error) int {
	switch {
	case err == nil:
		return errcode.CodeOK
	case errors.Is(err, ErrNotFound), errors.Is(err, store.ErrNotFound):
		return errcode.CodeNotFound
	case errors.Is(err, ErrNotReady):
		return errcode.CodeNotReady
	case errors.Is(err, ErrRateLimited):
		return errcode.CodeRateLimited
	case errors.Is(err, ErrConfirmationRequired):
		return errcode.CodeConfirmationRequired
	case errors.Is(err, ErrColorLocked):
		return errcode.CodeColorLocked
	case errors.Is(err, ErrInvalidArgument):
		return errcode.CodeInvalidParams
	default:
		return errcode.CodeInternalError
	}
}
