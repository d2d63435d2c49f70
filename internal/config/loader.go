package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigFileEnv names the environment variable holding the TOML file path.
const ConfigFileEnv = "CONFIG_FILE"

// lookupFunc returns the raw value for a key and whether it was set.
type lookupFunc func(key string) (string, bool)

// Load reads configuration from the environment and the optional CONFIG_FILE.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	fileValues := map[string]string{}
	if path := os.Getenv(ConfigFileEnv); path != "" {
		var err error
		fileValues, err = readFile(path)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}
	return load(chainLookup(envLookup, mapLookup(fileValues)))
}

func load(lookup lookupFunc) (*Config, error) {
	cfg := &Config{}
	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func envLookup(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func mapLookup(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// chainLookup asks each source in order and returns the first hit.
func chainLookup(sources ...lookupFunc) lookupFunc {
	return func(key string) (string, bool) {
		for _, src := range sources {
			if v, ok := src(key); ok {
				return v, true
			}
		}
		return "", false
	}
}

// readFile decodes a TOML file into upper-case keys. Tables are flattened
// with underscores, so [server] port = 9090 becomes SERVER_PORT.
func readFile(path string) (map[string]string, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flatten("", raw, out)
	return out, nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case []any:
			parts := make([]string, len(val))
			for i, p := range val {
				parts[i] = fmt.Sprint(p)
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// loadStruct recursively populates struct fields using lookup.
func loadStruct(v reflect.Value, lookup lookupFunc) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, lookup); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Primary name, then alternate
		value, ok := lookup(envName)
		if !ok && envAlt != "" {
			value, ok = lookup(envAlt)
		}

		if !ok || value == "" {
			if required {
				return fmt.Errorf("required setting %s is not set", envName)
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

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// problems accumulates validation failures so one run reports all of them.
type problems []string

func (p *problems) need(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Sprintf(format, args...))
	}
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate checks every section and returns one error listing all failures.
func (c *Config) Validate() error {
	var p problems

	switch scheme := databaseScheme(c.Database.URL); scheme {
	case "postgres", "postgresql":
		db := c.Database
		p.need(db.MaxConns > 0, "DB_MAX_CONNS must be positive")
		p.need(db.MinConns >= 0, "DB_MIN_CONNS must be non-negative")
		p.need(db.MaxConns >= db.MinConns, "DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", db.MaxConns, db.MinConns)
	case "sqlite":
	case "":
		p.need(false, "DATABASE_URL is required")
	default:
		p.need(false, "DATABASE_URL scheme %q must be postgres or sqlite", scheme)
	}

	srv := c.Server
	p.need(srv.Port > 0 && srv.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", srv.Port)
	p.need(srv.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	p.need(srv.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	p.need(srv.RequestTimeout > 0, "SERVER_REQUEST_TIMEOUT must be positive")

	p.need(c.Storage.BasePath != "", "STORAGE_BASE_PATH is required")
	p.need(c.Storage.Retention > 0, "STORAGE_RETENTION must be positive")
	p.need(c.Storage.SweepInterval > 0, "STORAGE_SWEEP_INTERVAL must be positive")

	cmp := c.Compare
	p.need(cmp.MaxFileSize > 0, "COMPARE_MAX_FILE_SIZE must be positive")
	p.need(cmp.MaxFilesPerSide > 0, "COMPARE_MAX_FILES_PER_SIDE must be positive")
	p.need(cmp.MaxConcurrent > 0, "COMPARE_MAX_CONCURRENT must be positive")
	p.need(cmp.MaxWaitTime > 0, "COMPARE_MAX_WAIT_TIME must be positive")
	p.need(cmp.Workers >= 0, "COMPARE_WORKERS must be non-negative")

	if c.Rate.Enabled {
		p.need(c.Rate.RequestsPerMinute > 0, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		p.need(c.Rate.CompareLimit > 0, "RATE_LIMIT_COMPARE must be positive when rate limiting is enabled")
	}

	p.need(c.Archive.HotRetentionDays > 0, "ARCHIVE_HOT_RETENTION_DAYS must be positive")
	p.need(c.Archive.BatchSize > 0, "ARCHIVE_BATCH_SIZE must be positive")
	p.need(c.Archive.CheckInterval > 0, "ARCHIVE_CHECK_INTERVAL must be positive")

	p.need(!c.Security.RequireAPIKey || len(c.Security.APIKeys) > 0,
		"REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")

	p.need(slices.Contains(logLevels, strings.ToLower(c.Logging.Level)),
		"LOG_LEVEL (%q) must be one of: %s", c.Logging.Level, strings.Join(logLevels, ", "))
	p.need(slices.Contains(logFormats, strings.ToLower(c.Logging.Format)),
		"LOG_FORMAT (%q) must be one of: %s", c.Logging.Format, strings.Join(logFormats, ", "))

	if len(p) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
	}
	return nil
}

func databaseScheme(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "invalid"
	}
	return strings.ToLower(u.Scheme)
}

// String returns a safe representation of the config for logging.
// The database URL is masked since it may carry credentials.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {Scheme: %q, URL: [MASKED], MaxConns: %d}, ",
		databaseScheme(c.Database.URL), c.Database.MaxConns)
	fmt.Fprintf(&b, "Storage: {BasePath: %q, Retention: %s}, ", c.Storage.BasePath, c.Storage.Retention)
	fmt.Fprintf(&b, "Compare: {MaxFileSize: %d, MaxFilesPerSide: %d, MaxConcurrent: %d}, ",
		c.Compare.MaxFileSize, c.Compare.MaxFilesPerSide, c.Compare.MaxConcurrent)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ", c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
