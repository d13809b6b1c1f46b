// Package config loads taskdeck configuration from a YAML file overridden
// by environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

type StorageConfig struct {
	QuotaBytes int64 `koanf:"quota_bytes"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Config struct {
	DataDir          string        `koanf:"data_dir"`
	AutoSaveInterval time.Duration `koanf:"autosave_interval"`
	Storage          StorageConfig `koanf:"storage"`
	Log              LogConfig     `koanf:"log"`
}

// Load reads the YAML file at path (skipped when absent), then overrides
// with TASKDECK_-prefixed environment variables, then applies defaults.
//
// Precedence (highest to lowest):
//  1. Environment variables (TASKDECK_DATA_DIR, TASKDECK_LOG_LEVEL, ...)
//  2. YAML config file
//  3. Defaults
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if content, err := os.ReadFile(path); err == nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// TASKDECK_LOG_LEVEL -> log.level, TASKDECK_DATA_DIR -> data_dir
	if err := k.Load(env.Provider("TASKDECK_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "TASKDECK_"))
		for _, section := range []string{"storage", "log"} {
			if strings.HasPrefix(s, section+"_") {
				return section + "." + strings.TrimPrefix(s, section+"_")
			}
		}
		return s
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.AutoSaveInterval == 0 {
		cfg.AutoSaveInterval = 500 * time.Millisecond
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

func (c *Config) Validate() error {
	if c.AutoSaveInterval < 0 {
		return fmt.Errorf("autosave_interval must not be negative")
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes must not be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
