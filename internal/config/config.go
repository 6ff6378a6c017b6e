// Package config loads server settings: defaults, then an optional YAML or
// TOML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is read once at startup and passed explicitly.
type Config struct {
	Name    string `yaml:"name" toml:"name"`
	Version string `yaml:"version" toml:"version"`
	Binary  string `yaml:"binary" toml:"binary"`

	// TimeoutMS is the per-operation subprocess timeout. 0 disables it.
	TimeoutMS int `yaml:"timeout_ms" toml:"timeout_ms"`
	// MaxRetries is accepted for compatibility; no code path retries.
	MaxRetries int    `yaml:"max_retries" toml:"max_retries"`
	LogLevel   string `yaml:"log_level" toml:"log_level"`

	MaxConcurrent      int    `yaml:"max_concurrent" toml:"max_concurrent"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" toml:"rate_limit_per_minute"`
	JournalPath        string `yaml:"journal_path" toml:"journal_path"`
	MetricsAddr        string `yaml:"metrics_addr" toml:"metrics_addr"`
}

// Timeout returns TimeoutMS as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Name:          "devspace-mcp-server",
		Version:       "1.0.0",
		Binary:        "devspace",
		TimeoutMS:     300000,
		MaxRetries:    3,
		LogLevel:      "info",
		MaxConcurrent: 4,
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		return nil
	case ".yaml", ".yml", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"DEVSPACE_TIMEOUT", &cfg.TimeoutMS},
		{"DEVSPACE_MAX_RETRIES", &cfg.MaxRetries},
		{"DEVSPACE_MCP_MAX_CONCURRENT", &cfg.MaxConcurrent},
		{"DEVSPACE_MCP_RATE_LIMIT", &cfg.RateLimitPerMinute},
	}
	for _, e := range ints {
		v, ok := lookup(e.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", e.key, err)
		}
		*e.dst = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"LOG_LEVEL", &cfg.LogLevel},
		{"DEVSPACE_BINARY", &cfg.Binary},
		{"DEVSPACE_MCP_JOURNAL", &cfg.JournalPath},
		{"DEVSPACE_MCP_METRICS_ADDR", &cfg.MetricsAddr},
	}
	for _, e := range strs {
		if v, ok := lookup(e.key); ok && strings.TrimSpace(v) != "" {
			*e.dst = strings.TrimSpace(v)
		}
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Binary) == "" {
		return fmt.Errorf("binary cannot be empty")
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("timeout_ms must be >= 0, got %d", c.TimeoutMS)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be >= 1, got %d", c.MaxConcurrent)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate_limit_per_minute must be >= 0, got %d", c.RateLimitPerMinute)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
