// Package app assembles the admin API from its parts: configuration,
// stores, services, HTTP surface and background jobs. Everything here is
// plain constructor calls so the composition stays readable and testable.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/villarosa/admin-api/internal/config"
	"github.com/villarosa/admin-api/internal/health"
	"github.com/villarosa/admin-api/internal/http/handler"
	"github.com/villarosa/admin-api/internal/http/middleware"
	"github.com/villarosa/admin-api/internal/http/router"
	"github.com/villarosa/admin-api/internal/identity"
	"github.com/villarosa/admin-api/internal/mail"
	"github.com/villarosa/admin-api/internal/observability"
	"github.com/villarosa/admin-api/internal/ratelimit"
	"github.com/villarosa/admin-api/internal/repository"
	"github.com/villarosa/admin-api/internal/security"
	"github.com/villarosa/admin-api/internal/service"
	"github.com/villarosa/admin-api/internal/storage"
)

const readinessTimeout = 5 * time.Second

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime

	scheduler *cron.Cron
	redis     *redis.Client
	db        *gorm.DB
}

// Build wires the full service. It connects to Redis and the document
// store eagerly so a misconfigured deployment fails at startup, not on
// the first request.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, runtime *observability.Runtime) (*App, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	db, err := repository.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	admins := repository.NewAdminRepository(db)
	properties := repository.NewPropertyRepository(db)
	contacts := repository.NewContactRepository(db)
	ids := identity.NewRedisDirectory(redisClient, "identity")
	directory := service.NewAdminDirectory(ids, admins)

	tokens := security.NewTokenManager(cfg.Auth.TokenIssuer, cfg.Auth.TokenAudience, cfg.Auth.TokenSecret, cfg.Auth.SessionTTL)
	setupKey := security.NewSetupKeyGuard(cfg.Auth.SetupKeyHash)

	authSvc := service.NewAuthService(tokens, tokens, directory, ids, admins, setupKey)
	userSvc := service.NewUserService(ids, admins, directory, cfg.Auth.ProtectedEmails)
	propSvc := service.NewPropertyService(properties)

	var mailer mail.Mailer
	if cfg.Email.FromEmail != "" {
		m, err := mail.NewSESMailer(ctx, cfg.Email)
		if err != nil {
			return nil, fmt.Errorf("init mailer: %w", err)
		}
		mailer = m
	}
	contactSvc := service.NewContactService(contacts, mailer, cfg.Email.ContactTo)

	var cleanupSvc *service.CleanupService
	if cfg.Storage.Endpoint != "" {
		store, err := storage.NewMinioStore(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		cleanupSvc = service.NewCleanupService(store, properties, cfg.Cleanup.GracePeriod)
	}

	gate := middleware.NewSessionGate(tokens, directory, middleware.GateOptions{
		LoginPath:        cfg.Auth.LoginPath,
		DashboardPath:    cfg.Auth.DashboardPath,
		UnauthorizedPath: cfg.Auth.UnauthorizedPath,
		SecureCookies:    cfg.IsProduction(),
	})

	loginPolicy := ratelimit.Policy{Max: cfg.RateLimit.LoginMax, Window: cfg.RateLimit.Window}
	contactPolicy := ratelimit.Policy{Max: cfg.RateLimit.ContactMax, Window: cfg.RateLimit.Window}
	apiPolicy := ratelimit.Policy{Max: cfg.RateLimit.APIPerMin, Window: time.Minute}

	readiness := health.NewProbeRunner(readinessTimeout,
		health.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}},
		health.Check{Name: "database", Probe: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
	)

	mux := router.NewRouter(router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authSvc, cfg.IsProduction()),
		UserHandler:     handler.NewUserHandler(userSvc),
		PropertyHandler: handler.NewPropertyHandler(propSvc),
		ContactHandler:  handler.NewContactHandler(contactSvc),
		AdminHandler:    handler.NewAdminHandler(cleanupSvc),
		SessionGate:     gate,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		BodyLimitBytes:  cfg.HTTP.BodyLimitBytes,
		LoginLimiter:    buildLimiter(cfg, redisClient, "login", loginPolicy, middleware.FailClosed),
		ContactLimiter:  buildLimiter(cfg, redisClient, "contact", contactPolicy, middleware.FailClosed),
		APILimiter:      buildLimiter(cfg, redisClient, "api", apiPolicy, middleware.FailOpen),
		Readiness:       readiness,
		EnableOTelHTTP:  cfg.OTEL.HTTPEnabled,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	a := &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		redis:         redisClient,
		db:            db,
	}

	if cfg.Cleanup.Enabled && cleanupSvc != nil {
		a.scheduler = cron.New(cron.WithSeconds())
		if _, err := a.scheduler.AddFunc(cfg.Cleanup.Schedule, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if _, err := cleanupSvc.Run(jobCtx); err != nil {
				logger.Error("scheduled image cleanup failed", "error", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("schedule image cleanup: %w", err)
		}
	}

	return a, nil
}

// buildLimiter picks the Redis-backed limiter when windows must be shared
// across instances, the in-process one otherwise.
func buildLimiter(cfg *config.Config, client *redis.Client, scope string, policy ratelimit.Policy, mode middleware.FailureMode) func(http.Handler) http.Handler {
	if policy.Max <= 0 {
		return nil
	}
	var limiter ratelimit.Limiter
	if cfg.RateLimit.UseRedis {
		limiter = ratelimit.NewRedisLimiter(client, "ratelimit:"+scope, policy)
	} else {
		limiter = ratelimit.NewFixedWindowLimiter(policy)
	}
	return middleware.NewRateLimiter(limiter, policy, scope).WithFailureMode(mode).Middleware()
}

// Run serves until the context is cancelled or a termination signal
// arrives, then drains in-flight requests and shuts the stack down in
// reverse dependency order.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", "addr", a.Server.Addr, "env", a.Config.Env)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("drain http server: %w", err))
	}
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Observability.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown observability: %w", err))
	}
	return errors.Join(errs...)
}

// Close releases the store connections. Run calls it during shutdown;
// tests that never serve call it directly.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close document store: %w", err))
			}
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
