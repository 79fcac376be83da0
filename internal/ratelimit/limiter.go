// Package ratelimit provides fixed-window request throttling keyed by client
// identifier. Limits are advisory, best-effort protection for a single
// process unless the Redis-backed limiter is used.
package ratelimit

import (
	"context"
	"time"
)

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Policy is a fixed window: at most Max events per Window per key.
type Policy struct {
	Max    int
	Window time.Duration
}

func (p Policy) normalized() Policy {
	if p.Max <= 0 {
		p.Max = 1
	}
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	return p
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
