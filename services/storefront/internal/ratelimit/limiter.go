// Package ratelimit ограничение частоты запросов фиксированным окном.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result решение лимитера
type Result struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Limiter считает попадания ключа в текущее окно
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter fixed window (INCR + EXPIRE), общий для всех инстансов
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter max запросов за window на ключ
func NewRedisLimiter(client redis.UniversalClient, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		max:    int64(max),
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	winStart := l.now().Truncate(l.window)
	resetAt := winStart.Add(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// ключ живёт чуть дольше окна, ExpireNX не сдвигает TTL при повторных попаданиях
	pipe.ExpireNX(ctx, redisKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	return decide(incr.Val(), l.max, resetAt, l.now()), nil
}

// MemoryLimiter для одного инстанса и тестов
type MemoryLimiter struct {
	mu      sync.Mutex
	max     int64
	window  time.Duration
	windows map[string]memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	start time.Time
	hits  int64
}

// NewMemoryLimiter max запросов за window на ключ
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     int64(max),
		window:  window,
		windows: make(map[string]memoryWindow),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	winStart := now.Truncate(l.window)
	w := l.windows[key]
	if !w.start.Equal(winStart) {
		w = memoryWindow{start: winStart}
	}
	w.hits++
	l.windows[key] = w

	return decide(w.hits, l.max, winStart.Add(l.window), now), nil
}

func decide(hits, max int64, resetAt, now time.Time) Result {
	res := Result{
		Allowed:   hits <= max,
		Limit:     max,
		Remaining: max - hits,
		ResetAt:   resetAt,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = resetAt.Sub(now)
		if res.RetryAfter < time.Second {
			res.RetryAfter = time.Second
		}
	}
	return res
}
