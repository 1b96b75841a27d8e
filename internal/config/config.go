// Package config loads daemon configuration from an optional YAML file
// overlaid with environment variable overrides, the latter always
// winning.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kestrel-run/codecell/internal/bytesize"
)

type Config struct {
	Port                         int    `yaml:"port"`
	ExecutionDir                 string `yaml:"execution_dir"`
	CacheDir                     string `yaml:"cache_dir"`
	SecretKey                    string `yaml:"secret_key"`
	DefaultTimeoutMs             int    `yaml:"default_timeout_ms"`
	CacheSizeLimit               string `yaml:"cache_size_limit"`
	ExecutionsDataPruneMaxCount  int    `yaml:"executions_data_prune_max_count"`
}

// CacheSizeLimitBytes parses CacheSizeLimit via the size parser.
func (c *Config) CacheSizeLimitBytes() int64 {
	return bytesize.Parse(c.CacheSizeLimit)
}

// AuthEnabled reports whether a bearer token is required.
func (c *Config) AuthEnabled() bool {
	return c.SecretKey != ""
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		Port:                        3000,
		ExecutionDir:                "./executions",
		CacheDir:                    "./dependencies-cache",
		DefaultTimeoutMs:            60000,
		CacheSizeLimit:              "1GB",
		ExecutionsDataPruneMaxCount: 100,
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("EXECUTION_DIR"); v != "" {
		cfg.ExecutionDir = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("DEFAULT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultTimeoutMs = n
		}
	}
	if v := os.Getenv("CACHE_SIZE_LIMIT"); v != "" {
		cfg.CacheSizeLimit = v
	}
	if v := os.Getenv("EXECUTIONS_DATA_PRUNE_MAX_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ExecutionsDataPruneMaxCount = n
		}
	}
}
