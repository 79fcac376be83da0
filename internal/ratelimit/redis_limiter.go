package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares a fixed window across server instances. The counter key
// expires with the window, so Redis handles the sweep.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	policy Policy
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, policy Policy) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix, policy: policy.normalized()}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := fmt.Sprintf("%s:%s", l.prefix, key)
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.policy.Window).Err(); err != nil {
			return Decision{}, err
		}
	}
	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		ttl = l.policy.Window
	}
	resetAt := time.Now().Add(ttl)
	if count > int64(l.policy.Max) {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: ttl, ResetAt: resetAt}, nil
	}
	remaining := l.policy.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}
