// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Development-only fallbacks used when the corresponding secret is unset.
// Load refuses to start in production without real values.
const (
	devJWTSecret  = "dev-jwt-secret-do-not-use-in-production!!"
	devCSRFSecret = "dev-csrf-secret-do-not-use-in-production!"
)

// minSecretLength is the minimum accepted length for production secrets.
const minSecretLength = 32

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production". The
	// variable name is shared with the frontend build so one deployment
	// setting drives both.
	Env string `env:"NODE_ENV" envDefault:"development"`

	// Port is the HTTP listen port (default: 8080).
	Port int `env:"PORT" envDefault:"8080"`

	// BaseURL is the public-facing URL used for links in emails and CORS.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:3000"`

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	// Empty means debug in development and info in production.
	LogLevel string `env:"LOG_LEVEL"`

	Mongo     MongoConfig     `envPrefix:"MONGODB_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Auth      AuthConfig      `envPrefix:"JWT_"`
	CSRF      CSRFConfig      `envPrefix:"CSRF_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Gate      GateConfig
	SMTP      SMTPConfig      `envPrefix:"SMTP_"`
	Storage   StorageConfig   `envPrefix:"STORAGE_"`
	Upload    UploadConfig    `envPrefix:"UPLOAD_"`
	Bootstrap BootstrapConfig `envPrefix:"ADMIN_"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	// URI is the MongoDB connection string (MONGODB_URI).
	URI string `env:"URI" envDefault:"mongodb://localhost:27017"`

	// Database is the database name used for all collections.
	Database string `env:"DB" envDefault:"forgepoint"`

	// MigrationsPath is the directory holding JSON migration files.
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"db/migrations"`

	// ConnectTimeout bounds the initial connect + ping.
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
}

// RedisConfig holds Redis connection parameters. Redis is optional: when URL
// is empty the rate limiter keeps its counters in process memory.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string `env:"URL"`
}

// AuthConfig holds identity token settings.
type AuthConfig struct {
	// Secret is the HS256 signing key for identity tokens (JWT_SECRET).
	Secret string `env:"SECRET"`

	// TTL is how long an identity token stays valid.
	TTL time.Duration `env:"TTL" envDefault:"24h"`
}

// CSRFConfig holds CSRF token settings.
type CSRFConfig struct {
	// Secret keys the HMAC binding session tokens to client tokens (CSRF_SECRET).
	Secret string `env:"SECRET"`

	// TTL is the cookie lifetime of an issued token pair.
	TTL time.Duration `env:"TTL" envDefault:"24h"`
}

// RateLimitConfig holds the sliding-window limiter settings.
type RateLimitConfig struct {
	Limit         int           `env:"LIMIT" envDefault:"60"`
	Window        time.Duration `env:"WINDOW" envDefault:"60s"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// GateConfig holds the edge gatekeeper settings.
type GateConfig struct {
	// ProtectedPrefixes are URL prefixes whose mutating requests require rate
	// limiting and CSRF verification.
	ProtectedPrefixes []string `env:"PROTECTED_PATHS" envSeparator:"," envDefault:"/api/contact,/api/admin"`

	// AllowedOrigins is the production CORS allow-list. Empty means BaseURL only.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// DevOrigins is the CORS allow-list used in development.
	DevOrigins []string `env:"DEV_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`

	// TrustedProxies are CIDRs whose forwarding headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," envDefault:"127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,fd00::/8"`
}

// SMTPConfig holds outbound mail settings. Mail is disabled when Host is empty.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`

	// Encryption is "starttls", "ssl" or "none".
	Encryption  string `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress string `env:"FROM" envDefault:"no-reply@localhost"`
	FromName    string `env:"FROM_NAME" envDefault:"Forgepoint"`

	// NotifyTo receives contact-form notifications.
	NotifyTo []string `env:"NOTIFY_TO" envSeparator:","`

	// PerSecond caps outbound message rate; Burst is the bucket size.
	PerSecond float64 `env:"PER_SECOND" envDefault:"1"`
	Burst     int     `env:"BURST" envDefault:"3"`
}

// IsConfigured reports whether enough settings are present to send mail.
func (s SMTPConfig) IsConfigured() bool {
	return s.Host != ""
}

// StorageConfig holds object storage settings. When Endpoint is empty files
// are written under LocalPath instead of MinIO.
type StorageConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"contact-uploads"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
	LocalPath string `env:"LOCAL_PATH" envDefault:"./uploads"`
}

// UploadConfig holds contact-form upload limits.
type UploadConfig struct {
	// MaxSize is the maximum size of a single file in bytes.
	MaxSize int64 `env:"MAX_SIZE" envDefault:"10485760"`

	// MaxFiles is the maximum number of attachments per submission.
	MaxFiles int `env:"MAX_FILES" envDefault:"5"`
}

// BootstrapConfig optionally creates the first super-admin at startup.
type BootstrapConfig struct {
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"Administrator"`
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing in production.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, cfg.finalize()
}

// finalize validates secrets and fills environment-dependent defaults.
func (c *Config) finalize() error {
	if c.IsProduction() {
		if len(c.Auth.Secret) < minSecretLength {
			return fmt.Errorf("JWT_SECRET must be set to at least %d characters in production", minSecretLength)
		}
		if len(c.CSRF.Secret) < minSecretLength {
			return fmt.Errorf("CSRF_SECRET must be set to at least %d characters in production", minSecretLength)
		}
	}

	// Dev-only defaults so local runs work without a .env file.
	if c.Auth.Secret == "" {
		slog.Warn("JWT_SECRET not set, using development default")
		c.Auth.Secret = devJWTSecret
	}
	if c.CSRF.Secret == "" {
		slog.Warn("CSRF_SECRET not set, using development default")
		c.CSRF.Secret = devCSRFSecret
	}

	if len(c.Gate.AllowedOrigins) == 0 {
		c.Gate.AllowedOrigins = []string{c.BaseURL}
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = 60
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true for "production" and common variants.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// CORSOrigins returns the origin allow-list for the current environment.
func (c *Config) CORSOrigins() []string {
	if c.IsProduction() {
		return c.Gate.AllowedOrigins
	}
	return append(append([]string{}, c.Gate.DevOrigins...), c.BaseURL)
}

// SlogLevel maps LogLevel to a slog level, defaulting by environment.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if c.IsDevelopment() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
