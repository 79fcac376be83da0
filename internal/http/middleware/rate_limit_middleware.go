package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/villarosa/admin-api/internal/http/response"
	"github.com/villarosa/admin-api/internal/observability"
	"github.com/villarosa/admin-api/internal/ratelimit"
)

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

// RateLimiter adapts a ratelimit.Limiter into chi middleware. The policy
// lives inside the limiter; the middleware only derives keys, writes the
// X-RateLimit-* headers and picks the failure mode for backend errors.
type RateLimiter struct {
	limiter ratelimit.Limiter
	limit   int
	window  time.Duration
	scope   string
	mode    FailureMode
	keyFunc func(r *http.Request) string
}

func NewRateLimiter(limiter ratelimit.Limiter, policy ratelimit.Policy, scope string) *RateLimiter {
	return NewRateLimiterWithKey(limiter, policy, scope, nil)
}

func NewRateLimiterWithKey(limiter ratelimit.Limiter, policy ratelimit.Policy, scope string, keyFunc func(r *http.Request) string) *RateLimiter {
	if scope == "" {
		scope = "api"
	}
	if keyFunc == nil {
		keyFunc = ClientIPKey
	}
	return &RateLimiter{
		limiter: limiter,
		limit:   policy.Max,
		window:  policy.Window,
		scope:   scope,
		mode:    FailClosed,
		keyFunc: keyFunc,
	}
}

// WithFailureMode overrides the default fail-closed behavior for scopes
// where availability beats strictness.
func (rl *RateLimiter) WithFailureMode(mode FailureMode) *RateLimiter {
	rl.mode = mode
	return rl
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.keyFunc(r)
			if key == "" {
				key = ClientIPKey(r)
			}
			decision, err := rl.limiter.Allow(r.Context(), rl.scope+":"+key)
			if err != nil {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error")
				if rl.mode == FailOpen {
					slog.Warn("rate limiter backend unavailable, allowing request",
						"scope", rl.scope,
						"error", err.Error(),
					)
					next.ServeHTTP(w, r)
					return
				}
				writeRateLimitHeaders(w.Header(), rl.limit, 0, time.Now().Add(rl.window))
				response.RateLimited(w, r, rl.window)
				return
			}
			writeRateLimitHeaders(w.Header(), rl.limit, decision.Remaining, decision.ResetAt)
			if !decision.Allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny")
				response.RateLimited(w, r, decision.RetryAfter)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPKey keys by the caller's network address. X-Forwarded-For is
// honored because the service always sits behind the site's proxy.
func ClientIPKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

// SubjectOrIPKey keys authenticated traffic by subject so one admin
// behind a shared NAT cannot starve another.
func SubjectOrIPKey(r *http.Request) string {
	if id, ok := IdentityFromContext(r.Context()); ok && id.SubjectID != "" {
		return "sub:" + id.SubjectID
	}
	return ClientIPKey(r)
}

func writeRateLimitHeaders(h http.Header, limit, remaining int, resetAt time.Time) {
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", max(limit, 0)))
	h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(remaining, 0)))
	if resetAt.IsZero() {
		resetAt = time.Now().Add(time.Second)
	}
	h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
}
