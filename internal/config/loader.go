package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables, applies defaults for
// unset values and validates the result.
// Returns an error naming every missing or invalid setting.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Unexported fields are never loaded
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// env names the variable, envAlt a fallback such as DATABASE_URL
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// SOURCE_URL wins over DATABASE_URL when both are set
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Fall back to the tag default
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Timeouts and intervals are time.Duration, parsed as "15s", "500ms"
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Float64:
		// Pixel and spreadsheet widths may be fractional
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Comma-separated, blanks dropped (TRUSTED_PROXIES)
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}

	// Source validation: each kind needs its own settings
	switch strings.ToLower(c.Source.Kind) {
	case SourcePostgres, SourceMySQL:
		if c.Source.URL == "" {
			errs = append(errs, fmt.Sprintf("SOURCE_URL is required for SOURCE_KIND=%s", c.Source.Kind))
		}
		if strings.TrimSpace(c.Source.Query) == "" {
			errs = append(errs, fmt.Sprintf("SOURCE_QUERY is required for SOURCE_KIND=%s", c.Source.Kind))
		}
	case SourceFile:
		if c.Source.File == "" {
			errs = append(errs, "SOURCE_FILE is required for SOURCE_KIND=file")
		}
		if c.Source.WatchInterval <= 0 {
			errs = append(errs, "SOURCE_WATCH_INTERVAL must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("SOURCE_KIND (%q) must be one of: postgres, mysql, file", c.Source.Kind))
	}
	if strings.ToLower(c.Source.Kind) == SourcePostgres && c.Source.NotifyChannel == "" {
		errs = append(errs, "SOURCE_NOTIFY_CHANNEL is required for SOURCE_KIND=postgres")
	}
	if c.Source.FetchTimeout <= 0 {
		errs = append(errs, "SOURCE_FETCH_TIMEOUT must be positive")
	}

	// Database pool validation
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	// Refresh timing validation
	if c.Refresh.DebounceDelay <= 0 {
		errs = append(errs, "REFRESH_DEBOUNCE_DELAY must be positive")
	}
	if c.Refresh.PollInterval <= 0 {
		errs = append(errs, "REFRESH_POLL_INTERVAL must be positive")
	}
	if c.Refresh.PollAttempts <= 0 {
		errs = append(errs, "REFRESH_POLL_ATTEMPTS must be positive")
	}

	// Layout validation
	if c.Layout.ContainerWidth <= 0 {
		errs = append(errs, "LAYOUT_CONTAINER_WIDTH must be positive")
	}
	if c.Layout.MinColumnWidth <= 0 {
		errs = append(errs, "LAYOUT_MIN_COLUMN_WIDTH must be positive")
	}
	if c.Layout.CharWidth <= 0 {
		errs = append(errs, "LAYOUT_CHAR_WIDTH must be positive")
	}
	if c.Layout.CellPadding < 0 {
		errs = append(errs, "LAYOUT_CELL_PADDING must be non-negative")
	}

	// Export validation
	if c.Export.ColumnWidth <= 0 {
		errs = append(errs, "EXPORT_COLUMN_WIDTH must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a representation safe for logging. The source URL is masked.
func (c *Config) String() string {
	url := ""
	if c.Source.URL != "" {
		url = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Source: {Kind: %q, URL: %s, File: %q, Name: %q}, ",
		c.Source.Kind, url, c.Source.File, c.Source.Name))
	b.WriteString(fmt.Sprintf("Refresh: {Debounce: %s, PollInterval: %s, PollAttempts: %d}, ",
		c.Refresh.DebounceDelay, c.Refresh.PollInterval, c.Refresh.PollAttempts))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
