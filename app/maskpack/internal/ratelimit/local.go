package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Local 进程内限流，每个 key 一个令牌桶（容量 1，每 window 补充 1 个）
type Local struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*localEntry
}

var (
	_ Limiter      = (*Local)(nil)
	_ WindowSetter = (*Local)(nil)
)

// NewLocal 创建进程内限流器
func NewLocal(window time.Duration) *Local {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Local{
		window:  window,
		entries: make(map[string]*localEntry),
	}
}

// Allow 使用调用方提供的时间判断，便于测试
func (l *Local) Allow(_ context.Context, key string, now time.Time) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(rate.Every(l.window), 1)}
		l.entries[key] = e
	}
	if now.After(e.lastSeen) {
		e.lastSeen = now
	}

	if e.limiter.AllowN(now, 1) {
		return true, 0, nil
	}

	missing := 1 - e.limiter.TokensAt(now)
	return false, time.Duration(missing * float64(l.window)), nil
}

// SetWindow 调整窗口，已有的令牌桶同时生效；window <= 0 时忽略
func (l *Local) SetWindow(window time.Duration) {
	if window <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.window = window
	// 以最后一次访问为基准，与 Allow 使用同一时间线
	for _, e := range l.entries {
		e.limiter.SetLimitAt(e.lastSeen, rate.Every(window))
	}
}

// Prune 清理超过 idle 未访问的 key，返回清理数量
func (l *Local) Prune(now time.Time, idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if now.Sub(e.lastSeen) > idle {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len 当前跟踪的 key 数量
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
