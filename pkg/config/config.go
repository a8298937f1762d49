package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration of a cache instance
type Config struct {
	Cache    CacheConfig    `yaml:"cache"`
	Bundler  BundlerConfig  `yaml:"bundler"`
	AntiSpam AntiSpamConfig `yaml:"antispam"`
	Pruner   PrunerConfig   `yaml:"pruner"`
	Workers  WorkersConfig  `yaml:"workers"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CacheConfig sizes the entity stores. Capacities are soft: they are only
// enforced by an explicit eviction.
type CacheConfig struct {
	MaxNotes            int `yaml:"max_notes"`
	MaxAddressables     int `yaml:"max_addressables"`
	MaxUsers            int `yaml:"max_users"`
	ChannelMessageLimit int `yaml:"channel_message_limit"`
}

// BundlerConfig controls how change notifications are coalesced
type BundlerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Buffer   int           `yaml:"buffer"`
}

// AntiSpamConfig controls the duplicate and flood detection
type AntiSpamConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MinContentLength int     `yaml:"min_content_length"`
	RecentWindow     int     `yaml:"recent_window"`
	AuthorRate       float64 `yaml:"author_rate"`
	AuthorBurst      int64   `yaml:"author_burst"`
}

// PrunerConfig controls the scheduled sweeps
type PrunerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// WorkersConfig sizes the verification and observer pool
type WorkersConfig struct {
	Size int `yaml:"size"`
}

// LoggingConfig selects the log level and handler
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			MaxNotes:            200000,
			MaxAddressables:     50000,
			MaxUsers:            100000,
			ChannelMessageLimit: 1000,
		},
		Bundler: BundlerConfig{
			Interval: time.Second,
			Buffer:   100,
		},
		AntiSpam: AntiSpamConfig{
			Enabled:          true,
			MinContentLength: 20,
			RecentWindow:     10000,
			AuthorRate:       5,
			AuthorBurst:      50,
		},
		Pruner: PrunerConfig{
			Interval: 10 * time.Minute,
		},
		Workers: WorkersConfig{
			Size: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path on top of the defaults and applies
// NOTECACHE_* environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if val := os.Getenv("NOTECACHE_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("NOTECACHE_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	if val := os.Getenv("NOTECACHE_WORKERS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid NOTECACHE_WORKERS: %w", err)
		}
		cfg.Workers.Size = n
	}
	if val := os.Getenv("NOTECACHE_MAX_NOTES"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid NOTECACHE_MAX_NOTES: %w", err)
		}
		cfg.Cache.MaxNotes = n
	}
	if val := os.Getenv("NOTECACHE_PRUNE_INTERVAL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid NOTECACHE_PRUNE_INTERVAL: %w", err)
		}
		cfg.Pruner.Interval = d
	}
	if val := os.Getenv("NOTECACHE_ANTISPAM"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid NOTECACHE_ANTISPAM: %w", err)
		}
		cfg.AntiSpam.Enabled = enabled
	}
	return nil
}

// Validate checks the configuration for values the cache cannot run with
func (c *Config) Validate() error {
	if c.Cache.MaxNotes < 0 || c.Cache.MaxAddressables < 0 || c.Cache.MaxUsers < 0 {
		return fmt.Errorf("store capacities must not be negative")
	}
	if c.Cache.ChannelMessageLimit <= 0 {
		return fmt.Errorf("channel message limit must be positive")
	}
	if c.Bundler.Interval <= 0 {
		return fmt.Errorf("bundler interval must be positive")
	}
	if c.Bundler.Buffer <= 0 {
		return fmt.Errorf("bundler buffer must be positive")
	}
	if c.AntiSpam.Enabled {
		if c.AntiSpam.RecentWindow <= 0 {
			return fmt.Errorf("antispam recent window must be positive")
		}
		if c.AntiSpam.AuthorRate <= 0 || c.AntiSpam.AuthorBurst <= 0 {
			return fmt.Errorf("antispam author rate and burst must be positive")
		}
	}
	if c.Pruner.Interval <= 0 {
		return fmt.Errorf("pruner interval must be positive")
	}
	if c.Workers.Size <= 0 {
		return fmt.Errorf("worker pool size must be positive")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}
