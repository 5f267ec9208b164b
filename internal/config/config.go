package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// FightData API
	FightDataAPIKey  string        `envconfig:"FIGHTDATA_API_KEY" required:"true"`
	FightDataBaseURL string        `envconfig:"FIGHTDATA_BASE_URL" default:"https://api.fightdata.io/v2"`
	FightDataTimeout time.Duration `envconfig:"FIGHTDATA_TIMEOUT" default:"30s"`
	APIMaxRetries    int           `envconfig:"API_MAX_RETRIES" default:"3"`
	APIRetryDelay    time.Duration `envconfig:"API_RETRY_DELAY" default:"2s"`

	// API Rate Limiting (requests per second against the upstream)
	APIRateLimit  float64 `envconfig:"API_RATE_LIMIT" default:"8"`
	APIBurstLimit int     `envconfig:"API_BURST_LIMIT" default:"4"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"mma_v2"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"mma_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Eventlog cache
	EnableEventlogCache bool          `envconfig:"ENABLE_EVENTLOG_CACHE" default:"true"`
	EventlogCacheTTL    time.Duration `envconfig:"EVENTLOG_CACHE_TTL" default:"15m"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Sync
	ActivityLookback  time.Duration `envconfig:"ACTIVITY_LOOKBACK" default:"2160h"` // 90 days
	BackfillWorkers   int           `envconfig:"BACKFILL_WORKERS" default:"4"`
	BackfillBatchSize int           `envconfig:"BACKFILL_BATCH_SIZE" default:"50"`
	SyncOnStart       bool          `envconfig:"SYNC_ON_START" default:"false"`

	// Scheduler
	EnableScheduler     bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	IncrementalSyncCron string `envconfig:"INCREMENTAL_SYNC_CRON" default:"*/30 * * * *"`
	FullBackfillCron    string `envconfig:"FULL_BACKFILL_CRON" default:"0 4 * * 0"`

	// Admin API
	EnableAdminAPI bool `envconfig:"ENABLE_ADMIN_API" default:"true"`
	AdminAPIPort   int  `envconfig:"ADMIN_API_PORT" default:"8082"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.FightDataAPIKey == "" {
		return fmt.Errorf("FIGHTDATA_API_KEY is required")
	}

	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.APIRateLimit <= 0 {
		return fmt.Errorf("API_RATE_LIMIT must be positive")
	}

	if c.BackfillWorkers < 1 {
		return fmt.Errorf("BACKFILL_WORKERS must be at least 1")
	}

	if c.BackfillBatchSize < 1 {
		return fmt.Errorf("BACKFILL_BATCH_SIZE must be at least 1")
	}

	if c.ActivityLookback <= 0 {
		return fmt.Errorf("ACTIVITY_LOOKBACK must be positive")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
