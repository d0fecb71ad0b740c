package ratelimit

import (
	"context"
	"time"
)

// DefaultWindow 同一玩家两次开包的最小间隔
const DefaultWindow = time.Second

// Limiter 按 key 限流
type Limiter interface {
	// Allow 是否放行；拒绝时返回建议等待时间
	Allow(ctx context.Context, key string, now time.Time) (bool, time.Duration, error)
}

// WindowSetter 支持运行时调整窗口的限流器
type WindowSetter interface {
	SetWindow(window time.Duration)
}
