// Package config loads DeenTracker configuration from file, environment,
// and defaults.
//
// Precedence, highest first: environment (DEEN_*), the YAML config file,
// built-in defaults. Command flags override all of these at the call site.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Pull interval bounds. Values outside this range are clamped: faster pulls
// hammer the sheet quota, slower ones make the group view feel dead.
const (
	MinPullInterval = 10 * time.Second
	MaxPullInterval = 60 * time.Second
)

// Config is the resolved runtime configuration.
type Config struct {
	// SheetURL is the spreadsheet web app endpoint. Empty means offline.
	SheetURL string `mapstructure:"sheet_url"`

	// Member is the active member ID. Usually empty here and resolved from
	// the identity file instead; set it to pin the identity.
	Member string `mapstructure:"member"`

	// DataDir holds the cache database, the identity file, and the roster.
	DataDir string `mapstructure:"data_dir"`

	GraceDuration    time.Duration `mapstructure:"grace_duration"`
	PullInterval     time.Duration `mapstructure:"pull_interval"`
	MinRetryInterval time.Duration `mapstructure:"min_retry_interval"`

	// DashboardAddr is the listen address for `deen daemon --dashboard`.
	DashboardAddr string `mapstructure:"dashboard_addr"`
}

// DefaultDataDir returns ~/.deentracker, falling back to the working
// directory when the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".deentracker"
	}
	return filepath.Join(home, ".deentracker")
}

// CachePath returns the SQLite cache location.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// RosterPath returns the roster file location.
func (c *Config) RosterPath() string {
	return filepath.Join(c.DataDir, "roster.yaml")
}

// Load reads configuration. path names an explicit config file; empty means
// <data dir>/config.yaml, and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("sheet_url", "")
	v.SetDefault("member", "")
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("grace_duration", 30*time.Second)
	v.SetDefault("pull_interval", 20*time.Second)
	v.SetDefault("min_retry_interval", 5*time.Second)
	v.SetDefault("dashboard_addr", ":8422")

	v.SetEnvPrefix("DEEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultDataDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if cfg.PullInterval < MinPullInterval {
		cfg.PullInterval = MinPullInterval
	}
	if cfg.PullInterval > MaxPullInterval {
		cfg.PullInterval = MaxPullInterval
	}
	if cfg.GraceDuration <= 0 {
		cfg.GraceDuration = 30 * time.Second
	}
	if cfg.MinRetryInterval < 0 {
		cfg.MinRetryInterval = 0
	}

	return &cfg, nil
}
