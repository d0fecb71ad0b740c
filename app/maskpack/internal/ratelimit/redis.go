package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
)

// commander Redis 限流依赖的命令，*redis.Client 满足该接口
type commander interface {
	Key(parts ...string) string
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	PTTL(ctx context.Context, key string) (time.Duration, error)
}

// Redis 多实例共享的限流：窗口内第一个 SetNX 成功者放行
// 窗口由 Redis 过期时间控制，与调用方传入的 now 无关
type Redis struct {
	rdb    commander
	window atomic.Int64
}

var (
	_ Limiter      = (*Redis)(nil)
	_ WindowSetter = (*Redis)(nil)
)

// NewRedis 创建 Redis 限流器
func NewRedis(rdb commander, window time.Duration) *Redis {
	if window <= 0 {
		window = DefaultWindow
	}
	r := &Redis{rdb: rdb}
	r.window.Store(int64(window))
	return r
}

// SetWindow 调整窗口，只影响之后写入的 key；window <= 0 时忽略
func (r *Redis) SetWindow(window time.Duration) {
	if window > 0 {
		r.window.Store(int64(window))
	}
}

func (r *Redis) Allow(ctx context.Context, key string, now time.Time) (bool, time.Duration, error) {
	k := r.rdb.Key("ratelimit", key)
	window := time.Duration(r.window.Load())

	ok, err := r.rdb.SetNX(ctx, k, now.UnixMilli(), window)
	if err != nil {
		return false, 0, errors.Wrap(err, "rate limit setnx")
	}
	if ok {
		return true, 0, nil
	}

	ttl, err := r.rdb.PTTL(ctx, k)
	if err != nil {
		return false, 0, errors.Wrap(err, "rate limit pttl")
	}
	if ttl < 0 {
		ttl = window
	}
	return false, ttl, nil
}
