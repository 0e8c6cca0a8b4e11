// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the server, the Telegram integration, and engine limits.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Telegram Bot Configuration
	TelegramBotToken string // Bot API token; also validated in the webhook URL path
	WebhookSecret    string // Expected X-Telegram-Bot-Api-Secret-Token header (empty = not enforced)

	// Admin API
	AdminAPIKey string // X-API-Key for /admin endpoints (empty = admin API disabled)

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)

	// Observability
	SentryDSN           string // Sentry DSN (empty = disabled)
	BetterStackToken    string // Better Stack source token (empty = disabled)
	BetterStackEndpoint string // Better Stack ingest endpoint override

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir string // Data directory for the SQLite database

	// Bot Configuration (embedded)
	Bot BotConfig
}

// BotConfig holds engine-specific configuration and limits
type BotConfig struct {
	// Content limits
	MaxContentBytes int // Maximum item content size in bytes (default: 10000)
	MaxNoteChars    int // Maximum note length in characters (default: 300)

	// Listing
	ListLimit      int // Maximum items fetched for /list (default: 50)
	PageSize       int // Items per keyboard page (default: 5)
	PreviewLength  int // Content preview length on list buttons (default: 30)
	ShortCodeChars int // Generated short code length (default: 6)

	// Deduplication (idempotent replay guard)
	DedupMaxEntries  int           // Prune threshold for the processed-update set (default: 1000)
	DedupKeepEntries int           // Entries retained after a prune (default: 500)
	DedupWindow      time.Duration // Time-based eviction window (default: 24h)

	// Rate Limits (Token Bucket Algorithm)
	UserRateLimitBurst        float64 // Maximum burst tokens per user (default: 15)
	UserRateLimitRefillPerSec float64 // Tokens refilled per second (default: 0.5)
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookSecret:    getEnv("TELEGRAM_WEBHOOK_SECRET", ""),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),

		MetricsUsername: getEnv("METRICS_USERNAME", "prometheus"),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),

		SentryDSN:           getEnv("SENTRY_DSN", ""),
		BetterStackToken:    getEnv("BETTERSTACK_TOKEN", ""),
		BetterStackEndpoint: getEnv("BETTERSTACK_ENDPOINT", ""),

		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		DataDir: getEnv("DATA_DIR", "./data"),

		Bot: BotConfig{
			MaxContentBytes:           getIntEnv("MAX_CONTENT_BYTES", 10000),
			MaxNoteChars:              getIntEnv("MAX_NOTE_CHARS", 300),
			ListLimit:                 getIntEnv("LIST_LIMIT", 50),
			PageSize:                  getIntEnv("PAGE_SIZE", 5),
			PreviewLength:             getIntEnv("PREVIEW_LENGTH", 30),
			ShortCodeChars:            getIntEnv("SHORT_CODE_LENGTH", 6),
			DedupMaxEntries:           getIntEnv("DEDUP_MAX_ENTRIES", 1000),
			DedupKeepEntries:          getIntEnv("DEDUP_KEEP_ENTRIES", 500),
			DedupWindow:               getDurationEnv("DEDUP_WINDOW", 24*time.Hour),
			UserRateLimitBurst:        getFloatEnv("USER_RATE_LIMIT_BURST", 15.0),
			UserRateLimitRefillPerSec: getFloatEnv("USER_RATE_LIMIT_REFILL_PER_SEC", 0.5),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.TelegramBotToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bot config: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks engine limits for internally consistent values.
func (b *BotConfig) Validate() error {
	var errs []error

	if b.MaxContentBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_CONTENT_BYTES must be positive, got %d", b.MaxContentBytes))
	}
	if b.MaxNoteChars <= 0 {
		errs = append(errs, fmt.Errorf("MAX_NOTE_CHARS must be positive, got %d", b.MaxNoteChars))
	}
	if b.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be positive, got %d", b.PageSize))
	}
	if b.ListLimit < b.PageSize {
		errs = append(errs, fmt.Errorf("LIST_LIMIT (%d) must be at least PAGE_SIZE (%d)", b.ListLimit, b.PageSize))
	}
	if b.ShortCodeChars <= 0 {
		errs = append(errs, fmt.Errorf("SHORT_CODE_LENGTH must be positive, got %d", b.ShortCodeChars))
	}
	if b.DedupKeepEntries > b.DedupMaxEntries {
		errs = append(errs, fmt.Errorf("DEDUP_KEEP_ENTRIES (%d) cannot exceed DEDUP_MAX_ENTRIES (%d)", b.DedupKeepEntries, b.DedupMaxEntries))
	}
	if b.DedupWindow <= 0 {
		errs = append(errs, fmt.Errorf("DEDUP_WINDOW must be positive, got %v", b.DedupWindow))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "tinyvault.db")
}
