package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowState struct {
	count       int
	windowStart time.Time
}

// FixedWindowLimiter is the in-process limiter. State is a plain map guarded
// by a mutex; stale keys are swept opportunistically once per window so memory
// stays bounded without a background goroutine.
type FixedWindowLimiter struct {
	mu        sync.Mutex
	policy    Policy
	store     map[string]*windowState
	nextSweep time.Time
	now       func() time.Time
}

func NewFixedWindowLimiter(policy Policy) *FixedWindowLimiter {
	policy = policy.normalized()
	return &FixedWindowLimiter{
		policy:    policy,
		store:     make(map[string]*windowState),
		nextSweep: time.Now().Add(policy.Window),
		now:       time.Now,
	}
}

func (l *FixedWindowLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextSweep) {
		for k, s := range l.store {
			if now.Sub(s.windowStart) >= l.policy.Window {
				delete(l.store, k)
			}
		}
		l.nextSweep = now.Add(l.policy.Window)
	}

	state, ok := l.store[key]
	if !ok || now.Sub(state.windowStart) >= l.policy.Window {
		l.store[key] = &windowState{count: 1, windowStart: now}
		return Decision{
			Allowed:   true,
			Remaining: l.policy.Max - 1,
			ResetAt:   now.Add(l.policy.Window),
		}, nil
	}

	resetAt := state.windowStart.Add(l.policy.Window)
	if state.count >= l.policy.Max {
		// Already over the limit: deny without growing the count so the
		// counter only ever serves the threshold comparison.
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: resetAt.Sub(now),
			ResetAt:    resetAt,
		}, nil
	}
	state.count++
	return Decision{
		Allowed:   true,
		Remaining: l.policy.Max - state.count,
		ResetAt:   resetAt,
	}, nil
}

// Len reports the number of live keys, for sweep tests.
func (l *FixedWindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.store)
}
