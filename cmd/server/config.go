// Package main provides the jpapi server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/jpapi/internal/logging"
)

// Environment variables that override the config file.
const (
	envDatasetDSN = "JPAPI_DATASET_DSN"
	envKeysPath   = "JPAPI_KEYS_PATH"
)

// Config represents the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Keys      KeysConfig      `yaml:"keys"`
	Query     QueryConfig     `yaml:"query"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       logging.Config  `yaml:"log"`
	Verbose   bool            `yaml:"-"` // set via CLI flag
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	HTTPAddress    string `yaml:"http_address"`    // API listen address (default: :8080)
	MetricsAddress string `yaml:"metrics_address"` // Prometheus listen address, empty disables
	ReadTimeout    string `yaml:"read_timeout"`    // e.g. "15s"
	WriteTimeout   string `yaml:"write_timeout"`
	IdleTimeout    string `yaml:"idle_timeout"`
}

// DatasetConfig points at the people group database.
type DatasetConfig struct {
	Driver          string `yaml:"driver"` // mysql or sqlite
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	QueryTimeout    string `yaml:"query_timeout"`
	ConnectAttempts int    `yaml:"connect_attempts"` // startup tries while the database is unreachable
}

// KeysConfig locates the API key store.
type KeysConfig struct {
	Path string `yaml:"path"` // SQLite database file
}

// QueryConfig tunes filter generation.
type QueryConfig struct {
	DefaultLimit     int    `yaml:"default_limit"`
	LegacyPageOffset bool   `yaml:"legacy_page_offset"`
	StrictNumbers    bool   `yaml:"strict_numbers"`
	EntitiesFile     string `yaml:"entities_file"` // empty uses the built-in catalog
}

// RateLimitConfig bounds requests per API key.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.setDefaults()
	return cfg
}

// applyEnv overrides secrets and paths that deployments keep out of files.
func (c *Config) applyEnv() {
	if v := os.Getenv(envDatasetDSN); v != "" {
		c.Dataset.DSN = v
	}
	if v := os.Getenv(envKeysPath); v != "" {
		c.Keys.Path = v
	}
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "15s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Server.IdleTimeout == "" {
		c.Server.IdleTimeout = "60s"
	}
	if c.Dataset.Driver == "" {
		c.Dataset.Driver = "mysql"
	}
	if c.Dataset.QueryTimeout == "" {
		c.Dataset.QueryTimeout = "10s"
	}
	if c.Dataset.ConnectAttempts == 0 {
		c.Dataset.ConnectAttempts = 5
	}
	if c.Dataset.ConnMaxLifetime == "" {
		c.Dataset.ConnMaxLifetime = "5m"
	}
	if c.Keys.Path == "" {
		c.Keys.Path = "./data/keys.db"
	}
	if c.Query.DefaultLimit == 0 {
		c.Query.DefaultLimit = 100
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 120
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	for name, v := range map[string]string{
		"server.read_timeout":       c.Server.ReadTimeout,
		"server.write_timeout":      c.Server.WriteTimeout,
		"server.idle_timeout":       c.Server.IdleTimeout,
		"dataset.query_timeout":     c.Dataset.QueryTimeout,
		"dataset.conn_max_lifetime": c.Dataset.ConnMaxLifetime,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	switch c.Dataset.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("dataset.driver must be mysql or sqlite, got %q", c.Dataset.Driver)
	}
	if c.Dataset.DSN == "" {
		return fmt.Errorf("dataset.dsn is required (or set %s)", envDatasetDSN)
	}
	if c.Query.DefaultLimit < 0 {
		return fmt.Errorf("query.default_limit must not be negative")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	return nil
}

// parseDuration parses a duration string, rejecting negative values.
func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative")
	}
	return d, nil
}

// mustDuration is used after Validate has accepted every duration.
func mustDuration(s string) time.Duration {
	d, _ := parseDuration(s)
	return d
}
