// Package config loads runtime configuration from file, environment, and
// defaults via viper. Every key can be overridden with a SPLITEASY_ prefixed
// environment variable (dots become underscores), e.g. SPLITEASY_REMOTE_URL.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the CLI needs to wire the sync engine.
type Config struct {
	// RemoteURL is the project base URL of the remote store. Empty disables
	// remote sync entirely (local-only mode).
	RemoteURL string

	// APIKey is the anon API key sent with every remote call.
	APIKey string

	// DBPath is the local SQLite database file.
	DBPath string

	// PaceDelay is the pause between group pushes during a full sync.
	PaceDelay time.Duration

	// BackoffMin/BackoffMax bound the reconnect task's retry interval.
	BackoffMin time.Duration
	BackoffMax time.Duration

	// RealtimeQueueSize bounds the realtime apply queue.
	RealtimeQueueSize int

	// LogLevel is debug, info, warn, or error.
	LogLevel string

	// LogFile, when set, sends logs to a rotated file instead of stderr.
	LogFile string

	// MetricsAddr, when set, serves Prometheus metrics on this address
	// during watch mode (e.g. ":9090").
	MetricsAddr string
}

// Load reads configuration. path may name an explicit config file; otherwise
// spliteasy.yaml is searched in the working directory and ~/.spliteasy/.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("remote.url", "")
	v.SetDefault("remote.api_key", "")
	v.SetDefault("db.path", "./data/spliteasy.db")
	v.SetDefault("sync.pace_delay", "200ms")
	v.SetDefault("sync.backoff_min", "1s")
	v.SetDefault("sync.backoff_max", "60s")
	v.SetDefault("realtime.queue_size", 32)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")

	v.SetEnvPrefix("SPLITEASY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("spliteasy")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.spliteasy")
		// A missing default config file is fine; defaults and env apply.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{
		RemoteURL:         v.GetString("remote.url"),
		APIKey:            v.GetString("remote.api_key"),
		DBPath:            v.GetString("db.path"),
		PaceDelay:         v.GetDuration("sync.pace_delay"),
		BackoffMin:        v.GetDuration("sync.backoff_min"),
		BackoffMax:        v.GetDuration("sync.backoff_max"),
		RealtimeQueueSize: v.GetInt("realtime.queue_size"),
		LogLevel:          v.GetString("log.level"),
		LogFile:           v.GetString("log.file"),
		MetricsAddr:       v.GetString("metrics.addr"),
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		return nil, fmt.Errorf("sync.backoff_max (%s) must be >= sync.backoff_min (%s)",
			cfg.BackoffMax, cfg.BackoffMin)
	}
	return cfg, nil
}
