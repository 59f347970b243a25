package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type AppConfig struct {
	Environment    string `env:"APP_ENV" envDefault:"development"`
	Port           string `env:"PORT" envDefault:"8080"`
	ServiceName    string `env:"SERVICE_NAME" envDefault:"usersapi"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabasePath   string `env:"DATABASE_PATH" envDefault:"users.db"`
	DatabaseURL    string `env:"DATABASE_URL"`

	CacheDriver string        `env:"CACHE_DRIVER" envDefault:"memory"`
	RedisURL    string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"1m"`

	ImportWorkers      int   `env:"IMPORT_WORKERS" envDefault:"4"`
	ImportMaxFileBytes int64 `env:"IMPORT_MAX_FILE_BYTES" envDefault:"10485760"`
	DefaultPageLimit   int   `env:"DEFAULT_PAGE_LIMIT" envDefault:"10"`

	RateLimitEnabled  bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	EnforceHTTPS bool `env:"ENFORCE_HTTPS" envDefault:"false"`

	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LokiURL          string `env:"LOKI_URL"`
	OTLPEndpoint     string `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	MetricsPort      string `env:"METRICS_PORT" envDefault:"9091"`
	TelemetryEnabled bool   `env:"TELEMETRY_ENABLED" envDefault:"false"`
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func (c *AppConfig) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.CacheDriver {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver)
	}

	if c.ImportMaxFileBytes <= 0 {
		return fmt.Errorf("IMPORT_MAX_FILE_BYTES must be positive, got %d", c.ImportMaxFileBytes)
	}

	if c.DefaultPageLimit < 1 {
		return fmt.Errorf("DEFAULT_PAGE_LIMIT must be >= 1, got %d", c.DefaultPageLimit)
	}

	return nil
}

// Load reads an optional .env file and then the process environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func GetDefaultConfig() *AppConfig {
	return &AppConfig{
		Environment:        "development",
		Port:               "8080",
		ServiceName:        "usersapi",
		ServiceVersion:     "1.0.0",
		DatabaseDriver:     DriverSQLite,
		DatabasePath:       "users.db",
		CacheDriver:        CacheMemory,
		RedisURL:           "redis://localhost:6379/0",
		CacheTTL:           time.Minute,
		ImportWorkers:      4,
		ImportMaxFileBytes: 10 << 20,
		DefaultPageLimit:   10,
		RateLimitEnabled:   true,
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
		EnforceHTTPS:       false,
		LogLevel:           "info",
		OTLPEndpoint:       "localhost:4317",
		MetricsPort:        "9091",
	}
}
