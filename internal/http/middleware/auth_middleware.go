package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/villarosa/admin-api/internal/http/response"
	"github.com/villarosa/admin-api/internal/observability"
	"github.com/villarosa/admin-api/internal/security"
)

type contextKey string

const (
	IdentityContextKey contextKey = "identity"
)

// AdminDirectory answers whether a verified subject currently holds
// admin access. Errors deny access; they never grant it.
type AdminDirectory interface {
	IsAdmin(ctx context.Context, subjectID string) (bool, error)
}

type GateOptions struct {
	LoginPath        string
	DashboardPath    string
	UnauthorizedPath string
	SecureCookies    bool
}

// SessionGate protects admin routes behind the session cookie pair.
// RequireAPI answers JSON errors; RequirePage redirects the browser.
type SessionGate struct {
	tokens    *security.TokenManager
	directory AdminDirectory
	opts      GateOptions
}

func NewSessionGate(tokens *security.TokenManager, directory AdminDirectory, opts GateOptions) *SessionGate {
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if opts.DashboardPath == "" {
		opts.DashboardPath = "/admin"
	}
	if opts.UnauthorizedPath == "" {
		opts.UnauthorizedPath = "/unauthorized"
	}
	return &SessionGate{tokens: tokens, directory: directory, opts: opts}
}

type gateOutcome struct {
	identity *security.Identity
	// reason is set on denial: missing_token, session_expired, not_admin,
	// auth_failed.
	reason string
	// forbidden distinguishes a signed-in non-admin from a missing or
	// broken session.
	forbidden bool
	// clearCookies is set when the session cookie pair is known stale.
	clearCookies bool
}

func (g *SessionGate) check(r *http.Request) gateOutcome {
	raw := security.GetCookie(r, security.SessionCookieName)
	if raw == "" {
		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			raw = strings.TrimSpace(auth[7:])
		}
	}
	if raw == "" {
		// The flag cookie without a session cookie is stale state left
		// behind by the client; wipe it.
		clear := security.GetCookie(r, security.AuthFlagCookieName) != ""
		return gateOutcome{reason: "missing_token", clearCookies: clear}
	}
	identity, err := g.tokens.Verify(raw)
	if err != nil {
		return gateOutcome{reason: "session_expired", clearCookies: true}
	}
	isAdmin, err := g.directory.IsAdmin(r.Context(), identity.SubjectID)
	if err != nil {
		return gateOutcome{reason: "auth_failed", forbidden: true}
	}
	if !isAdmin {
		return gateOutcome{reason: "not_admin", forbidden: true, clearCookies: true}
	}
	return gateOutcome{identity: identity}
}

func (g *SessionGate) RequireAPI() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := g.check(r)
			if out.clearCookies {
				security.ClearSessionCookies(w, g.opts.SecureCookies)
			}
			if out.identity == nil {
				if out.forbidden {
					observability.RecordGateDecision(r.Context(), "forbidden", out.reason)
					response.Forbidden(w, r, "")
					return
				}
				observability.RecordGateDecision(r.Context(), "unauthorized", out.reason)
				response.Unauthorized(w, r, "")
				return
			}
			observability.RecordGateDecision(r.Context(), "allow", "")
			ctx := context.WithValue(r.Context(), IdentityContextKey, out.identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *SessionGate) RequirePage() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := g.check(r)
			if out.clearCookies {
				security.ClearSessionCookies(w, g.opts.SecureCookies)
			}
			if out.identity == nil {
				if out.forbidden {
					observability.RecordGateDecision(r.Context(), "forbidden", out.reason)
					http.Redirect(w, r, g.opts.UnauthorizedPath, http.StatusSeeOther)
					return
				}
				observability.RecordGateDecision(r.Context(), "unauthorized", out.reason)
				http.Redirect(w, r, loginRedirectURL(g.opts.LoginPath, out.reason, r), http.StatusSeeOther)
				return
			}
			observability.RecordGateDecision(r.Context(), "allow", "")
			ctx := context.WithValue(r.Context(), IdentityContextKey, out.identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RedirectIfAuthenticated wraps the login page: a request that already
// carries a valid admin session is sent to the dashboard instead of
// being shown the login form again. Anything less than a fully valid
// admin session falls through to the form, with stale cookies wiped.
func (g *SessionGate) RedirectIfAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := g.check(r)
			if out.identity != nil {
				http.Redirect(w, r, g.opts.DashboardPath, http.StatusSeeOther)
				return
			}
			if out.clearCookies {
				security.ClearSessionCookies(w, g.opts.SecureCookies)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func loginRedirectURL(loginPath, reason string, r *http.Request) string {
	q := url.Values{}
	if reason != "" {
		q.Set("reason", reason)
	}
	returnTo := r.URL.Path
	if r.URL.RawQuery != "" {
		returnTo += "?" + r.URL.RawQuery
	}
	// Only same-site relative targets are carried through.
	if strings.HasPrefix(returnTo, "/") && !strings.HasPrefix(returnTo, "//") {
		q.Set("redirect_uri", returnTo)
	}
	return loginPath + "?" + q.Encode()
}

func IdentityFromContext(ctx context.Context) (*security.Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(*security.Identity)
	return id, ok
}
