// Package config loads service settings from environment variables,
// applies defaults and validates everything on startup.
package config

import (
	"strconv"
	"time"
)

// Source kinds.
const (
	SourcePostgres = "postgres"
	SourceMySQL    = "mysql"
	SourceFile     = "file"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Source   SourceConfig
	Database DatabaseConfig
	Refresh  RefreshConfig
	Layout   LayoutConfig
	Export   ExportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout stays 0 so SSE streams are not cut off.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout applies to every route except the event stream.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// SourceConfig selects where snapshots come from.
type SourceConfig struct {
	// Kind is postgres, mysql or file.
	Kind string `env:"SOURCE_KIND" default:"file"`

	// URL is the database connection string for postgres and mysql.
	URL string `env:"SOURCE_URL" envAlt:"DATABASE_URL"`

	// Query produces the mirrored table.
	Query string `env:"SOURCE_QUERY"`

	// File is the YAML snapshot path for the file source.
	File string `env:"SOURCE_FILE" default:"data/snapshot.yaml"`

	// Name is the dataset name used for exports. Falls back to the
	// snapshot's own name.
	Name string `env:"SOURCE_NAME"`

	// NotifyChannel is the Postgres channel carrying change signals.
	NotifyChannel string `env:"SOURCE_NOTIFY_CHANNEL" default:"tablemirror"`

	FetchTimeout time.Duration `env:"SOURCE_FETCH_TIMEOUT" default:"10s"`

	// WatchInterval is how often the file source checks for changes.
	WatchInterval time.Duration `env:"SOURCE_WATCH_INTERVAL" default:"2s"`
}

// DatabaseConfig holds connection pool settings for database sources.
type DatabaseConfig struct {
	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RefreshConfig tunes the debounce and polling behaviour after a
// parameter change.
type RefreshConfig struct {
	DebounceDelay time.Duration `env:"REFRESH_DEBOUNCE_DELAY" default:"1s"`
	PollInterval  time.Duration `env:"REFRESH_POLL_INTERVAL" default:"500ms"`
	PollAttempts  int           `env:"REFRESH_POLL_ATTEMPTS" default:"10"`
}

// LayoutConfig holds column sizing settings, in pixels.
type LayoutConfig struct {
	// ContainerWidth is used until the browser reports its own.
	ContainerWidth int     `env:"LAYOUT_CONTAINER_WIDTH" default:"1200"`
	MinColumnWidth int     `env:"LAYOUT_MIN_COLUMN_WIDTH" default:"80"`
	CharWidth      float64 `env:"LAYOUT_CHAR_WIDTH" default:"8"`
	CellPadding    int     `env:"LAYOUT_CELL_PADDING" default:"16"`
}

// ExportConfig holds spreadsheet export settings.
type ExportConfig struct {
	DefaultExtension string  `env:"EXPORT_DEFAULT_EXTENSION" default:".xlsx"`
	ColumnWidth      float64 `env:"EXPORT_COLUMN_WIDTH" default:"15"`
	IncludeRowIndex  bool    `env:"EXPORT_INCLUDE_ROW_INDEX" default:"true"`
	Banded           bool    `env:"EXPORT_BANDED" default:"false"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
