package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendSQL    = "sql"
	StoreBackendBadger = "badger"

	// devAdminPassword is only used when APP_ENV=development and ADMIN_PASSWORD is unset.
	devAdminPassword = "TED"
)

type Config struct {
	// Application
	AppName     string
	AppEnv      string
	Port        string
	ContentPath string
	Timezone    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Document store
	StoreBackend string // "sql" or "badger"
	BadgerPath   string

	// Security
	SessionSecret         string
	AdminPassword         string
	RateLimitPerMinute    int
	GateAttemptsPerMinute int

	// Observability (optional)
	SentryDSN string

	// Avatar storage (S3-compatible, optional: empty bucket disables uploads)
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3PresignExpiry time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	appEnv := envString("APP_ENV", "development")

	cfg := &Config{
		// Application
		AppName:     envString("APP_NAME", "Speedy Striders"),
		AppEnv:      appEnv,
		Port:        envString("PORT", "8080"),
		ContentPath: envString("CONTENT_PATH", "content"),
		Timezone:    envString("APP_TIMEZONE", "Asia/Taipei"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/striders.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Document store
		StoreBackend: envString("STORE_BACKEND", StoreBackendSQL),
		BadgerPath:   envString("BADGER_PATH", "./data/badger"),

		// Security
		SessionSecret:         envString("SESSION_SECRET", ""),
		AdminPassword:         envString("ADMIN_PASSWORD", ""),
		RateLimitPerMinute:    envInt("RATE_LIMIT_PER_MINUTE", 120),
		GateAttemptsPerMinute: envInt("GATE_ATTEMPTS_PER_MINUTE", 5),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Avatar storage
		S3Region:        envString("S3_REGION", "us-east-1"),
		S3Bucket:        envString("S3_BUCKET", ""),
		S3AccessKey:     envString("S3_ACCESS_KEY", ""),
		S3SecretKey:     envString("S3_SECRET_KEY", ""),
		S3Endpoint:      envString("S3_ENDPOINT", ""),
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", 1*time.Hour),
	}

	if cfg.IsProduction() {
		validateProduction(cfg)
	} else {
		applyDevelopmentDefaults(cfg)
	}

	return cfg
}

// validateProduction ensures secrets are set explicitly for production deployments.
// Development falls back to fixed values so the app runs without any .env file.
func validateProduction(cfg *Config) {
	cfg.SessionSecret = envRequired("SESSION_SECRET")
	cfg.AdminPassword = envRequired("ADMIN_PASSWORD")
}

func applyDevelopmentDefaults(cfg *Config) {
	if cfg.SessionSecret == "" {
		slog.Warn("SESSION_SECRET not set, using development secret")
		cfg.SessionSecret = "development-session-secret"
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = devAdminPassword
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AvatarUploadsEnabled reports whether an S3 bucket is configured.
func (c *Config) AvatarUploadsEnabled() bool {
	return c.S3Bucket != ""
}

// Location resolves the configured time zone used for record dates.
// Falls back to UTC when the zone name is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("config invalid timezone, using UTC", "timezone", c.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

// Sanitized returns a copy of the config with only public/safe fields.
// Safe to expose in ctx and rendered pages.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:  c.AppName,
		AppEnv:   c.AppEnv,
		Port:     c.Port,
		Timezone: c.Timezone,

		S3Bucket:   c.S3Bucket,
		S3Endpoint: c.S3Endpoint,
	}
}
