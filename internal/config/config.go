// Package config provides centralized configuration management for the server.
// Values come from environment variables, then an optional TOML file named by
// CONFIG_FILE, then defaults. Everything is validated on startup so that
// misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Compare  CompareConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Archive  ArchiveConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout bounds reading a request including uploads (default: 2m)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"2m"`

	// WriteTimeout bounds writing a response (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for a request (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds audit log database settings.
type DatabaseConfig struct {
	// URL selects the backend: postgres://... or sqlite://path
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"sqlite://data/audit.db"`

	// MaxConns is the Postgres pool size (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" envAlt:"DATABASE_MAX_CONNS" default:"10"`

	// MinConns is the number of idle Postgres connections kept open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" envAlt:"DATABASE_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envAlt:"DATABASE_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime closes connections idle for longer (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envAlt:"DATABASE_MAX_CONN_IDLE_TIME" default:"30m"`
}

// StorageConfig holds session storage settings.
type StorageConfig struct {
	// BasePath is the root directory for sessions (default: data/sessions)
	BasePath string `env:"STORAGE_BASE_PATH" default:"data/sessions"`

	// Retention is how long an untouched session is kept (default: 24h)
	Retention time.Duration `env:"STORAGE_RETENTION" default:"24h"`

	// SweepInterval is how often expired sessions are purged (default: 1h)
	SweepInterval time.Duration `env:"STORAGE_SWEEP_INTERVAL" default:"1h"`
}

// CompareConfig holds comparison limits.
type CompareConfig struct {
	// MaxFileSize is the largest accepted upload in bytes (default: 50MB)
	MaxFileSize int64 `env:"COMPARE_MAX_FILE_SIZE" default:"52428800"`

	// MaxFilesPerSide caps the uploads per source (default: 200)
	MaxFilesPerSide int `env:"COMPARE_MAX_FILES_PER_SIDE" default:"200"`

	// MaxConcurrent is the number of comparisons run at once (default: 4)
	MaxConcurrent int `env:"COMPARE_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"COMPARE_MAX_WAIT_TIME" default:"30s"`

	// Workers is the number of pairs processed in parallel within one
	// comparison; 0 uses the number of CPUs.
	Workers int `env:"COMPARE_WORKERS" default:"0"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" envAlt:"RATE_ENABLED" default:"true"`

	// RequestsPerMinute is the general limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" envAlt:"RATE_REQUESTS_PER_MINUTE" default:"120"`

	// CompareLimit is requests per minute for comparison endpoints (default: 10)
	CompareLimit int `env:"RATE_LIMIT_COMPARE" envAlt:"RATE_COMPARE_LIMIT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES" envAlt:"SECURITY_TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the admin routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" envAlt:"SECURITY_REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted admin keys
	APIKeys []string `env:"API_KEYS" envAlt:"SECURITY_API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envAlt:"LOGGING_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envAlt:"LOGGING_FORMAT" default:"text"`
}

// ArchiveConfig holds audit log retention settings.
type ArchiveConfig struct {
	// HotRetentionDays is days to keep comparison logs (default: 90)
	HotRetentionDays int `env:"ARCHIVE_HOT_RETENTION_DAYS" default:"90"`

	// BatchSize is rows deleted per purge statement (default: 5000)
	BatchSize int `env:"ARCHIVE_BATCH_SIZE" default:"5000"`

	// CheckInterval is how often the retention job runs (default: 24h)
	CheckInterval time.Duration `env:"ARCHIVE_CHECK_INTERVAL" default:"24h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
