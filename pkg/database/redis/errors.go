package redis

import "github.com/cockroachdb/errors"

var (
	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("redis config is nil")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("invalid redis config")

	// ErrNil 键不存在
	ErrNil = errors.New("redis: nil")
)
