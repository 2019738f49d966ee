// Package config loads hostpool configuration from TOML files. It follows
// a default-then-override pattern: a missing file yields the defaults, a
// present file overrides only the fields it sets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	apperrors "github.com/go-i2p/hostpool/lib/errors"
	"github.com/go-i2p/hostpool/lib/pool"
)

// Default configuration values
const (
	DefaultMetricsListen = "127.0.0.1:9090"
)

// Config holds all configuration for a hostpool deployment.
type Config struct {
	Pool    PoolConfig    `toml:"pool"`
	Sweep   SweepConfig   `toml:"sweep"`
	Metrics MetricsConfig `toml:"metrics"`
}

// PoolConfig contains the pool capacity and timeout settings.
type PoolConfig struct {
	// MaxConnectionsPerHost is the per-endpoint cap on live records
	MaxConnectionsPerHost int `toml:"max_connections_per_host"`
	// MaxTotalConnections is the global cap on live records
	MaxTotalConnections int `toml:"max_total_connections"`
	// IdleTimeout is how long an idle record may go unused before expiry
	IdleTimeout time.Duration `toml:"idle_timeout"`
	// ConnectTimeout is the dial timeout carried for the network collaborator
	ConnectTimeout time.Duration `toml:"connect_timeout"`
}

// SweepConfig contains background janitor settings.
type SweepConfig struct {
	// Enabled controls whether a background janitor is started
	Enabled bool `toml:"enabled"`
	// Interval is how often the janitor reclaims expired idle records
	Interval time.Duration `toml:"interval"`
}

// MetricsConfig contains metrics exposition settings.
type MetricsConfig struct {
	// Enabled controls whether the metrics HTTP endpoint is served
	Enabled bool `toml:"enabled"`
	// Listen is the address to bind the metrics server to
	Listen string `toml:"listen"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			MaxConnectionsPerHost: pool.DefaultMaxPerHost,
			MaxTotalConnections:   pool.DefaultMaxTotal,
			IdleTimeout:           pool.DefaultIdleTimeout,
			ConnectTimeout:        pool.DefaultConnectTimeout,
		},
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: pool.DefaultSweepInterval,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  DefaultMetricsListen,
		},
	}
}

// LoadConfig reads configuration from a TOML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the configuration to a TOML file.
// It creates the parent directory if it doesn't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Pool.MaxConnectionsPerHost < 1 {
		return apperrors.Wrap(apperrors.ErrConfiguration, "pool.max_connections_per_host must be at least 1")
	}
	if c.Pool.MaxTotalConnections < 1 {
		return apperrors.Wrap(apperrors.ErrConfiguration, "pool.max_total_connections must be at least 1")
	}
	if c.Pool.MaxTotalConnections < c.Pool.MaxConnectionsPerHost {
		return apperrors.Wrap(apperrors.ErrConfiguration, "pool.max_total_connections must be at least pool.max_connections_per_host")
	}
	if c.Pool.IdleTimeout <= 0 {
		return apperrors.Wrap(apperrors.ErrConfiguration, "pool.idle_timeout must be positive")
	}
	if c.Pool.ConnectTimeout <= 0 {
		return apperrors.Wrap(apperrors.ErrConfiguration, "pool.connect_timeout must be positive")
	}
	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		return apperrors.Wrap(apperrors.ErrConfiguration, "sweep.interval must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return apperrors.Wrap(apperrors.ErrConfiguration, "metrics.listen is required when metrics are enabled")
	}
	return nil
}

// PoolConfig converts the file configuration into a pool.Config.
func (c *Config) PoolConfig() pool.Config {
	return pool.Config{
		MaxPerHost:     c.Pool.MaxConnectionsPerHost,
		MaxTotal:       c.Pool.MaxTotalConnections,
		IdleTimeout:    c.Pool.IdleTimeout,
		ConnectTimeout: c.Pool.ConnectTimeout,
	}
}
