// Package ratelimit counts attempts per key in fixed windows. The login
// endpoint and the general API limiter share it, with either an in-process
// or a Redis backend.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result describes the outcome of one attempt.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits at most Limit attempts per key per window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps counters in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  windowSize,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
		l.sweep(now)
	}
	w.count++

	return result(w.count, l.limit, w.resetAt.Sub(now)), nil
}

// sweep drops expired windows so idle keys do not accumulate.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}

// RedisLimiter shares counters between API instances through INCR and EXPIRE.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, windowSize time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: windowSize, prefix: prefix}
}

// Allow counts the attempt and arms the window expiry in one MULTI/EXEC.
// ExpireNX (Redis 7+) only sets a TTL on a key that has none, so a counter
// left without one is repaired by the next attempt instead of blocking forever.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.window)
		ttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to update rate limit counter: %w", err)
	}

	untilReset := ttl.Val()
	if untilReset <= 0 {
		untilReset = l.window
	}

	return result(int(incr.Val()), l.limit, untilReset), nil
}

func result(count, limit int, untilReset time.Duration) Result {
	r := Result{Allowed: count <= limit, Limit: limit, Remaining: max(limit-count, 0)}
	if !r.Allowed {
		r.RetryAfter = untilReset
	}
	return r
}
