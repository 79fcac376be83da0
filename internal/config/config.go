package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type HTTPConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	BodyLimitBytes  int64         `env:"BODY_LIMIT_BYTES" envDefault:"1048576"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

type AuthConfig struct {
	TokenIssuer   string        `env:"TOKEN_ISSUER" envDefault:"villarosa-admin"`
	TokenAudience string        `env:"TOKEN_AUDIENCE" envDefault:"villarosa-admin-api"`
	TokenSecret   string        `env:"TOKEN_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	// SetupKeyHash is the bcrypt hash of the admin-setup key that gates the
	// one-time bootstrap endpoint. Empty disables bootstrap entirely.
	SetupKeyHash string `env:"SETUP_KEY_HASH"`
	// ProtectedEmails are addresses that bulk deletion must never remove,
	// regardless of what the claim or document flag says at that moment.
	ProtectedEmails  []string `env:"PROTECTED_EMAILS" envSeparator:","`
	LoginPath        string   `env:"LOGIN_PATH" envDefault:"/login"`
	DashboardPath    string   `env:"DASHBOARD_PATH" envDefault:"/admin"`
	UnauthorizedPath string   `env:"UNAUTHORIZED_PATH" envDefault:"/unauthorized"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type DatabaseConfig struct {
	// Driver selects the document-store backend: postgres in deployments,
	// sqlite for local development and tests.
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file::memory:?cache=shared"`
}

type StorageConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	Bucket    string `env:"BUCKET" envDefault:"property-images"`
}

type EmailConfig struct {
	AWSRegion string `env:"AWS_REGION" envDefault:"eu-west-1"`
	FromEmail string `env:"FROM_EMAIL"`
	FromName  string `env:"FROM_NAME" envDefault:"Villa Rosa"`
	ContactTo string `env:"CONTACT_TO"`
}

type RateLimitConfig struct {
	Window     time.Duration `env:"WINDOW" envDefault:"15m"`
	LoginMax   int           `env:"LOGIN_MAX" envDefault:"5"`
	ContactMax int           `env:"CONTACT_MAX" envDefault:"3"`
	APIPerMin  int           `env:"API_PER_MINUTE" envDefault:"120"`
	// UseRedis shares windows across instances; otherwise throttling is
	// per-process and best-effort only.
	UseRedis bool `env:"USE_REDIS" envDefault:"false"`
}

type CleanupConfig struct {
	Enabled bool `env:"ENABLED" envDefault:"false"`
	// Schedule is a cron expression with seconds; default is daily at 03:30.
	Schedule    string        `env:"SCHEDULE" envDefault:"0 30 3 * * *"`
	GracePeriod time.Duration `env:"GRACE_PERIOD" envDefault:"24h"`
}

type OTELConfig struct {
	ServiceName           string        `env:"SERVICE_NAME" envDefault:"villarosa-admin-api"`
	Environment           string        `env:"ENVIRONMENT" envDefault:"development"`
	ExporterEndpoint      string        `env:"EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ExporterInsecure      bool          `env:"EXPORTER_OTLP_INSECURE" envDefault:"true"`
	MetricsEnabled        bool          `env:"METRICS_ENABLED" envDefault:"false"`
	TracesEnabled         bool          `env:"TRACES_ENABLED" envDefault:"false"`
	LogsEnabled           bool          `env:"LOGS_ENABLED" envDefault:"false"`
	HTTPEnabled           bool          `env:"HTTP_ENABLED" envDefault:"false"`
	MetricsExportInterval time.Duration `env:"METRICS_EXPORT_INTERVAL" envDefault:"30s"`
	TraceSampleRatio      float64       `env:"TRACE_SAMPLE_RATIO" envDefault:"0.1"`
}

type Config struct {
	Env          string `env:"APP_ENV" envDefault:"development"`
	LogLevelName string `env:"LOG_LEVEL" envDefault:"info"`

	HTTP      HTTPConfig      `envPrefix:"HTTP_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Storage   StorageConfig   `envPrefix:"STORAGE_"`
	Email     EmailConfig     `envPrefix:"EMAIL_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Cleanup   CleanupConfig   `envPrefix:"CLEANUP_"`
	OTEL      OTELConfig      `envPrefix:"OTEL_"`
}

// Load reads .env (when present), parses the environment and validates the
// result. The validation outcome is recorded as a metric keyed by profile.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		err = fmt.Errorf("parse environment: %w", err)
		recordConfigValidationEvent(ctx, "", "error", classifyConfigLoadError(err))
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		recordConfigValidationEvent(ctx, cfg.Env, "error", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(ctx, cfg.Env, "success", "none")
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IsProduction() {
		if len(c.Auth.TokenSecret) < 32 {
			return fmt.Errorf("validate config: AUTH_TOKEN_SECRET must be at least 32 bytes in production")
		}
		if c.Database.Driver == "sqlite" {
			return fmt.Errorf("validate config: sqlite is not a production document store")
		}
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("validate config: AUTH_TOKEN_SECRET is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("validate config: AUTH_SESSION_TTL must be positive")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("validate config: unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.LogLevelName) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
