package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T, policy Policy) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, "test", policy), mr
}

func TestRedisLimiterAllowsUpToMax(t *testing.T) {
	l, _ := newRedisLimiter(t, Policy{Max: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		d, err := l.Allow(context.Background(), "ip:10.0.0.1")
		if err != nil {
			t.Fatalf("allow %d: %v", i+1, err)
		}
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	d, err := l.Allow(context.Background(), "ip:10.0.0.1")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed {
		t.Fatal("4th request should be denied")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("retry-after should be positive, got %v", d.RetryAfter)
	}
}

func TestRedisLimiterSetsWindowExpiry(t *testing.T) {
	l, mr := newRedisLimiter(t, Policy{Max: 5, Window: time.Minute})

	if _, err := l.Allow(context.Background(), "k"); err != nil {
		t.Fatalf("allow: %v", err)
	}
	ttl := mr.TTL("test:k")
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("counter TTL = %v, want (0, 1m]", ttl)
	}
}

func TestRedisLimiterResetsAfterWindow(t *testing.T) {
	l, mr := newRedisLimiter(t, Policy{Max: 1, Window: time.Minute})

	l.Allow(context.Background(), "k")
	if d, _ := l.Allow(context.Background(), "k"); d.Allowed {
		t.Fatal("second request should be denied")
	}

	mr.FastForward(61 * time.Second)
	if d, _ := l.Allow(context.Background(), "k"); !d.Allowed {
		t.Fatal("request after window expiry should be allowed")
	}
}

func TestRedisLimiterSurfacesBackendErrors(t *testing.T) {
	l, mr := newRedisLimiter(t, Policy{Max: 1, Window: time.Minute})
	mr.Close()

	if _, err := l.Allow(context.Background(), "k"); err == nil {
		t.Fatal("expected an error from a dead backend")
	}
}
