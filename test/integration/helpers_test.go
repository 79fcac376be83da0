package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/villarosa/admin-api/internal/app"
	"github.com/villarosa/admin-api/internal/config"
	"github.com/villarosa/admin-api/internal/identity"
	"github.com/villarosa/admin-api/internal/repository"
	"github.com/villarosa/admin-api/internal/security"
)

const (
	testSecret  = "integration-secret-at-least-32-bytes"
	loginMax    = 5
	contactMax  = 3
	rateWindow  = 15 * time.Minute
	sessionHour = time.Hour
)

type testEnv struct {
	baseURL string
	client  *http.Client
	tokens  *security.TokenManager
	ids     *identity.RedisDirectory
	admins  repository.AdminRepository
	redis   *miniredis.Miniredis
}

// newAdminTestServer assembles the real stack over miniredis and an
// in-memory document store and serves it from an httptest server.
func newAdminTestServer(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Env:          "test",
		LogLevelName: "error",
		HTTP: config.HTTPConfig{
			Addr:            ":0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: time.Second,
			BodyLimitBytes:  1 << 20,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Auth: config.AuthConfig{
			TokenIssuer:      "villarosa-admin",
			TokenAudience:    "villarosa-admin-api",
			TokenSecret:      testSecret,
			SessionTTL:       sessionHour,
			ProtectedEmails:  []string{"founder@villarosa.example"},
			LoginPath:        "/login",
			UnauthorizedPath: "/unauthorized",
		},
		Redis: config.RedisConfig{Addr: mr.Addr()},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    fmt.Sprintf("file:integration_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
		},
		RateLimit: config.RateLimitConfig{
			Window:     rateWindow,
			LoginMax:   loginMax,
			ContactMax: contactMax,
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := app.Build(context.Background(), cfg, logger, nil)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	server := httptest.NewServer(a.Server.Handler)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	// A second connection to the same shared in-memory database lets tests
	// inspect and mutate the document store out of band.
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open document store: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &testEnv{
		baseURL: server.URL,
		client:  client,
		tokens:  security.NewTokenManager(cfg.Auth.TokenIssuer, cfg.Auth.TokenAudience, cfg.Auth.TokenSecret, cfg.Auth.SessionTTL),
		ids:     identity.NewRedisDirectory(redisClient, "identity"),
		admins:  repository.NewAdminRepository(db),
		redis:   mr,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, client *http.Client, method, target string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope from %s %s (%d): %v\n%s", method, target, resp.StatusCode, err, raw)
		}
	}
	return resp, env
}

func (e *testEnv) seedAdmin(t *testing.T, subjectID, email string) {
	t.Helper()
	err := e.ids.CreateUser(context.Background(), &identity.User{
		SubjectID:     subjectID,
		Email:         email,
		EmailVerified: true,
		CustomClaims:  map[string]any{"admin": true},
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

func (e *testEnv) seedUser(t *testing.T, subjectID, email string) {
	t.Helper()
	err := e.ids.CreateUser(context.Background(), &identity.User{
		SubjectID: subjectID,
		Email:     email,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

// login exchanges an upstream credential for the session cookie pair,
// which lands in the client's jar.
func (e *testEnv) login(t *testing.T, subjectID, email string) {
	t.Helper()
	cred, err := e.tokens.Sign(subjectID, email, true)
	if err != nil {
		t.Fatalf("sign credential: %v", err)
	}
	resp, env := doJSON(t, e.client, http.MethodPost, e.baseURL+"/api/v1/auth/verify", map[string]string{"token": cred}, nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("login: status=%d success=%v error=%s", resp.StatusCode, env.Success, env.Error.Message)
	}
}

func (e *testEnv) cookieValue(t *testing.T, name string) string {
	t.Helper()
	u, err := url.Parse(e.baseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// csrfHeaders performs a safe request to seed the csrf cookie and returns
// the header map a mutating request must carry.
func (e *testEnv) csrfHeaders(t *testing.T) map[string]string {
	t.Helper()
	resp, _ := doJSON(t, e.client, http.MethodGet, e.baseURL+"/api/v1/users", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("csrf seed request failed: %d", resp.StatusCode)
	}
	token := e.cookieValue(t, "csrf_token")
	if token == "" {
		t.Fatal("csrf cookie was not seeded")
	}
	return map[string]string{"X-CSRF-Token": token}
}
