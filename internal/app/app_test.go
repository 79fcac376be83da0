package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/villarosa/admin-api/internal/config"
	"github.com/villarosa/admin-api/internal/http/middleware"
	"github.com/villarosa/admin-api/internal/ratelimit"
)

func testConfig(t *testing.T, redisAddr string) *config.Config {
	t.Helper()
	return &config.Config{
		Env:          "test",
		LogLevelName: "error",
		HTTP: config.HTTPConfig{
			Addr:            ":0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Auth: config.AuthConfig{
			TokenIssuer:      "villarosa-admin",
			TokenAudience:    "villarosa-admin-api",
			TokenSecret:      "test-secret-at-least-32-bytes-long",
			SessionTTL:       time.Hour,
			LoginPath:        "/login",
			UnauthorizedPath: "/unauthorized",
		},
		Redis:    config.RedisConfig{Addr: redisAddr},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: "file:app_test?mode=memory&cache=shared"},
		RateLimit: config.RateLimitConfig{
			Window:     15 * time.Minute,
			LoginMax:   5,
			ContactMax: 3,
		},
	}
}

func TestBuildWiresTheStack(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := Build(context.Background(), testConfig(t, mr.Addr()), logger, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if a.Server == nil || a.Server.Handler == nil {
		t.Fatal("expected an http server with a handler")
	}
	if a.scheduler != nil {
		t.Fatal("scheduler should be off when cleanup is disabled")
	}

	// The assembled handler answers liveness and gates the admin API.
	rr := httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("gate: expected 401, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("readiness: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestBuildFailsWithoutRedis(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t, "127.0.0.1:1")

	if _, err := Build(context.Background(), cfg, logger, nil); err == nil {
		t.Fatal("expected build to fail when redis is unreachable")
	}
}

func TestBuildLimiterDisabledForZeroMax(t *testing.T) {
	cfg := testConfig(t, "unused")
	mw := buildLimiter(cfg, nil, "api", ratelimit.Policy{Max: 0}, middleware.FailOpen)
	if mw != nil {
		t.Fatal("zero max should disable the limiter")
	}
}
