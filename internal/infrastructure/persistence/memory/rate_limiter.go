package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter 进程内按 key 的令牌桶限流器
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter 创建限流器，idleTTL 后清理不活跃的 key
func NewRateLimiter(idleTTL time.Duration) *RateLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Allow 在 window 内最多放行 limit 个请求，突发容量同为 limit
func (l *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	e, ok := l.limiters[key]
	if !ok {
		every := rate.Every(window / time.Duration(limit))
		e = &limiterEntry{limiter: rate.NewLimiter(every, limit)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// Len 当前跟踪的 key 数
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// sweep 每个 idleTTL 周期最多清理一次不活跃的 key，调用方需持有锁
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.limiters, k)
		}
	}
}
