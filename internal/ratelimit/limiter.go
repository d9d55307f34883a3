// Package ratelimit counts attempts per key in fixed windows.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type redisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter allows limit attempts per key in each window. The window
// starts at the first attempt.
func NewRedisLimiter(client *redis.Client, prefix string, limit int64, window time.Duration) Limiter {
	return &redisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("counting attempt for %s: %w", redisKey, err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, redisKey, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("starting window for %s: %w", redisKey, err)
		}
	}

	if count <= l.limit {
		return Decision{Allowed: true, Remaining: l.limit - count}, nil
	}

	retry, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil || retry <= 0 {
		// the key lost its expiry; start a fresh window
		_ = l.client.PExpire(ctx, redisKey, l.window).Err()
		retry = l.window
	}
	return Decision{Allowed: false, RetryAfter: retry}, nil
}

type noopLimiter struct{}

// Noop allows everything. It stands in when no Redis is configured.
func Noop() Limiter {
	return noopLimiter{}
}

func (noopLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}
