// Package config provides process configuration for capview.
// It loads settings from environment variables with sensible defaults and
// validates all of them on startup to fail fast on misconfiguration.
//
// The pipeline document (server, credentials, file pairs) is separate and
// resolved by package manifest; this package only says where to find it.
package config

import (
	"strconv"
	"time"
)

// Config holds all process configuration.
// All settings can be configured via environment variables.
type Config struct {
	Pipeline PipelineConfig
	Fetch    FetchConfig
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// PipelineConfig holds settings for reading the pipeline document and reports.
type PipelineConfig struct {
	// ConfigPath is the pipeline document, relative to the executable (default: config.xml)
	ConfigPath string `env:"CAPVIEW_CONFIG" default:"config.xml"`

	// Encoding is the report encoding: utf-8, euc-kr or auto (default: utf-8)
	Encoding string `env:"CSV_ENCODING" default:"utf-8"`
}

// FetchConfig holds remote download settings.
type FetchConfig struct {
	// Timeout bounds dialing and each protocol exchange (default: 30s)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"30s"`

	// Parallel is how many entries may download at once (default: 1)
	Parallel int `env:"FETCH_PARALLEL" default:"1"`

	// KnownHostsFile verifies SSH host keys; empty accepts any key
	KnownHostsFile string `env:"FETCH_KNOWN_HOSTS"`
}

// ServerConfig holds web sink settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 15s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds run history settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Run history is disabled when empty.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`
}

// Enabled reports whether run history should be recorded.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// SecurityConfig holds web sink security settings.
type SecurityConfig struct {
	// RequireAPIKey rejects requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}
