// Package config provides centralized configuration management for the importer.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadHeaderTimeout bounds header reads only; import bodies may stream for a long time.
	ReadHeaderTimeout time.Duration `env:"SERVER_READ_HEADER_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 0 for streaming)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout applies to non-streaming API routes (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds destination store settings.
type DatabaseConfig struct {
	// Driver selects the store backend: postgres, sqlite or mysql (default: postgres)
	Driver string `env:"DB_DRIVER" default:"postgres"`

	// URL is the connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Bootstrap creates missing TPC-H tables on startup (default: false)
	Bootstrap bool `env:"DB_BOOTSTRAP" default:"false"`
}

// ImportConfig holds delimited-file import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted upload size in bytes (default: 2GiB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" envAlt:"UPLOAD_MAX_FILE_SIZE" default:"2147483648"`

	// MaxConcurrent is the maximum number of parallel imports (default: 4)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" envAlt:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// BatchSize is the number of rows per bulk insert (default: 1000)
	BatchSize int `env:"IMPORT_BATCH_SIZE" envAlt:"UPLOAD_BATCH_SIZE" default:"1000"`

	// ProgressEvery is the processed-line cadence of progress events (default: 1000)
	ProgressEvery int `env:"IMPORT_PROGRESS_EVERY" default:"1000"`

	// RecentErrors caps the errors carried by progress events (default: 10)
	RecentErrors int `env:"IMPORT_RECENT_ERRORS" default:"10"`

	// ChunkSize is the read size used when pulling from the source (default: 64KiB)
	ChunkSize int `env:"IMPORT_CHUNK_SIZE" default:"65536"`

	// DefaultDelimiter is used when a request gives none (default: |)
	DefaultDelimiter string `env:"IMPORT_DEFAULT_DELIMITER" default:"|"`

	// ResultRetention is how long finished jobs stay queryable (default: 30m)
	ResultRetention time.Duration `env:"IMPORT_RESULT_RETENTION" default:"30m"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" envAlt:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards import and truncate endpoints with X-API-Key (default: false)
	RequireAPIKey bool `env:"SECURITY_REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// MetricsConfig selects where import metrics go.
type MetricsConfig struct {
	// Backend is none, prometheus or datadog (default: prometheus)
	Backend string `env:"METRICS_BACKEND" default:"prometheus"`

	// Namespace prefixes every metric name (default: tpcload)
	Namespace string `env:"METRICS_NAMESPACE" default:"tpcload"`

	// StatsdAddr is the DogStatsD agent address (default: 127.0.0.1:8125)
	StatsdAddr string `env:"METRICS_STATSD_ADDR" default:"127.0.0.1:8125"`

	// Tags are extra constant tags for DogStatsD, as key:value
	Tags []string `env:"METRICS_TAGS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
