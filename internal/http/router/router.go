package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/villarosa/admin-api/internal/health"
	"github.com/villarosa/admin-api/internal/http/handler"
	"github.com/villarosa/admin-api/internal/http/middleware"
	"github.com/villarosa/admin-api/internal/http/response"
)

type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	PropertyHandler *handler.PropertyHandler
	ContactHandler  *handler.ContactHandler
	AdminHandler    *handler.AdminHandler
	SessionGate     *middleware.SessionGate
	CORSOrigins     []string
	BodyLimitBytes  int64
	// LoginLimiter throttles credential exchange, ContactLimiter the
	// public contact form, APILimiter everything else. Nil disables the
	// respective throttle (tests).
	LoginLimiter   func(http.Handler) http.Handler
	ContactLimiter func(http.Handler) http.Handler
	APILimiter     func(http.Handler) http.Handler
	Readiness      *health.ProbeRunner
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	bodyLimit := dep.BodyLimitBytes
	if bodyLimit <= 0 {
		bodyLimit = 1 << 20
	}
	r.Use(middleware.BodyLimit(bodyLimit))
	if dep.APILimiter != nil {
		r.Use(dep.APILimiter)
	}

	passthrough := func(next http.Handler) http.Handler { return next }
	loginLimiter := dep.LoginLimiter
	if loginLimiter == nil {
		loginLimiter = passthrough
	}
	contactLimiter := dep.ContactLimiter
	if contactLimiter == nil {
		contactLimiter = passthrough
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimiter).Post("/verify", dep.AuthHandler.Verify)
			r.With(loginLimiter).Post("/bootstrap", dep.AuthHandler.Bootstrap)
			r.Get("/status", dep.AuthHandler.Status)
			r.Post("/logout", dep.AuthHandler.Logout)
		})

		// Public contact form; throttled per client.
		r.With(contactLimiter).Post("/contact", dep.ContactHandler.Submit)

		// Everything below re-checks admin status on each request.
		r.Group(func(r chi.Router) {
			r.Use(dep.SessionGate.RequireAPI())
			r.Use(middleware.CSRFMiddleware)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", dep.UserHandler.List)
				r.Get("/{id}", dep.UserHandler.Get)
				r.Put("/{id}", dep.UserHandler.Update)
				r.Delete("/{id}", dep.UserHandler.Delete)
				r.Post("/bulk-delete", dep.UserHandler.BulkDelete)
			})

			r.Route("/properties", func(r chi.Router) {
				r.Get("/", dep.PropertyHandler.List)
				r.Post("/", dep.PropertyHandler.Create)
				r.Get("/{id}", dep.PropertyHandler.Get)
				r.Put("/{id}", dep.PropertyHandler.Update)
				r.Delete("/{id}", dep.PropertyHandler.Delete)
				r.Put("/{id}/bookings", dep.PropertyHandler.ReplaceBookings)
			})

			r.Get("/contact", dep.ContactHandler.List)
			r.Post("/admin/cleanup-images", dep.AdminHandler.CleanupImages)
		})
	})

	// Browser-facing admin pages get redirect semantics instead of JSON.
	r.Group(func(r chi.Router) {
		r.Use(dep.SessionGate.RequirePage())
		r.Get("/admin", serveAdminShell)
		r.Get("/admin/*", serveAdminShell)
	})

	// A live admin session skips the login form entirely.
	r.With(dep.SessionGate.RedirectIfAuthenticated()).Get("/login", serveLoginPage)
	r.Get("/unauthorized", serveUnauthorizedPage)

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

// serveAdminShell is a placeholder for the SPA shell the frontend build
// mounts in deployment; the gate in front of it is what matters here.
func serveAdminShell(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<!doctype html><title>Villa Rosa Admin</title>"))
}

func serveLoginPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<!doctype html><title>Villa Rosa Admin Login</title>"))
}

func serveUnauthorizedPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("<!doctype html><title>Unauthorized</title>"))
}
