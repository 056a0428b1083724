// Package config loads runtime settings from defaults, an optional TOML
// file and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvConfigFile names the environment variable holding the TOML file path.
const EnvConfigFile = "ZF_CONFIG_FILE"

type Config struct {
	// HTTP Server
	Port           string
	MetricsEnabled bool

	// Storage
	DataBackend   string
	SQLiteDBPath  string
	StoragePrefix string

	// Logging
	LogLevel  string
	LogFormat string

	// Auth scaffold
	SupabaseURL          string
	SupabaseAnonKey      string
	AuthSessionTTL       time.Duration
	AuthCacheSize        int
	CacheCleanupInterval time.Duration

	// Display
	CurrencySymbol string
}

// fileConfig is the on-disk TOML layout. Zero values leave defaults alone.
type fileConfig struct {
	Server struct {
		Port           string `toml:"port"`
		MetricsEnabled *bool  `toml:"metrics_enabled"`
	} `toml:"server"`
	Storage struct {
		Backend    string `toml:"backend"`
		SQLitePath string `toml:"sqlite_path"`
		Prefix     string `toml:"prefix"`
	} `toml:"storage"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Auth struct {
		SupabaseURL     string `toml:"supabase_url"`
		AnonKey         string `toml:"anon_key"`
		SessionTTL      string `toml:"session_ttl"`
		CacheSize       int    `toml:"cache_size"`
		CleanupInterval string `toml:"cleanup_interval"`
	} `toml:"auth"`
	Display struct {
		Currency string `toml:"currency"`
	} `toml:"display"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port:                 "8081",
		MetricsEnabled:       true,
		DataBackend:          "sqlite",
		SQLiteDBPath:         "./data/zombie.db",
		StoragePrefix:        "zombieFinance_",
		LogLevel:             "info",
		LogFormat:            "text",
		AuthSessionTTL:       time.Hour,
		AuthCacheSize:        100,
		CacheCleanupInterval: 5 * time.Minute,
		CurrencySymbol:       "S/",
	}
}

// Load builds the configuration. When ZF_CONFIG_FILE is set the file must
// exist and parse.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	setString(&c.Port, fc.Server.Port)
	if fc.Server.MetricsEnabled != nil {
		c.MetricsEnabled = *fc.Server.MetricsEnabled
	}
	setString(&c.DataBackend, fc.Storage.Backend)
	setString(&c.SQLiteDBPath, fc.Storage.SQLitePath)
	setString(&c.StoragePrefix, fc.Storage.Prefix)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	setString(&c.SupabaseURL, fc.Auth.SupabaseURL)
	setString(&c.SupabaseAnonKey, fc.Auth.AnonKey)
	setString(&c.CurrencySymbol, fc.Display.Currency)
	if fc.Auth.CacheSize != 0 {
		c.AuthCacheSize = fc.Auth.CacheSize
	}
	if fc.Auth.SessionTTL != "" {
		d, err := time.ParseDuration(fc.Auth.SessionTTL)
		if err != nil {
			return fmt.Errorf("config file %s: auth.session_ttl: %w", path, err)
		}
		c.AuthSessionTTL = d
	}
	if fc.Auth.CleanupInterval != "" {
		d, err := time.ParseDuration(fc.Auth.CleanupInterval)
		if err != nil {
			return fmt.Errorf("config file %s: auth.cleanup_interval: %w", path, err)
		}
		c.CacheCleanupInterval = d
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.MetricsEnabled)
	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.StoragePrefix = getEnv("STORAGE_PREFIX", c.StoragePrefix)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.SupabaseURL = getEnv("SUPABASE_URL", c.SupabaseURL)
	c.SupabaseAnonKey = getEnv("SUPABASE_ANON_KEY", c.SupabaseAnonKey)
	c.AuthSessionTTL = getEnvDuration("AUTH_SESSION_TTL", c.AuthSessionTTL)
	c.AuthCacheSize = getEnvInt("AUTH_CACHE_SIZE", c.AuthCacheSize)
	c.CacheCleanupInterval = getEnvDuration("CACHE_CLEANUP_INTERVAL", c.CacheCleanupInterval)
	c.CurrencySymbol = getEnv("CURRENCY_SYMBOL", c.CurrencySymbol)
}

// AuthEnabled reports whether the auth scaffold has an identity service to
// talk to.
func (c *Config) AuthEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}

// SlogLevel returns the configured level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if strings.TrimSpace(c.StoragePrefix) == "" {
		errors = append(errors, "storage prefix cannot be empty")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.SupabaseURL != "" {
		if parsedURL, err := url.Parse(c.SupabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Supabase URL '%s': %v", c.SupabaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid Supabase URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.SupabaseAnonKey == "" {
			errors = append(errors, "Supabase anon key cannot be empty when Supabase URL is provided")
		}
	}

	if c.AuthSessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid auth session TTL %v: must be at least 1 minute", c.AuthSessionTTL))
	}
	if c.AuthCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid auth cache size %d: must be at least 1", c.AuthCacheSize))
	}
	if c.CacheCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
	}

	if strings.TrimSpace(c.CurrencySymbol) == "" {
		errors = append(errors, "currency symbol cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
