// Package config loads the application configuration from an optional YAML
// file and environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/vocab/internal/review"
	"github.com/abhisek/vocab/internal/spacedrep"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	// DB is the SQLite database path. Empty resolves to the default data
	// directory.
	DB string `yaml:"db"`

	// Backend selects the state store: "sqlite" or "redis".
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`

	// LogMode is "cli", "dev" or "prod".
	LogMode string `yaml:"log_mode"`

	// Timezone names the IANA zone learning days are bucketed in.
	// Default: "Local".
	Timezone string `yaml:"timezone"`

	// DailyLimit caps the items pulled into a review session. 0 = unlimited.
	DailyLimit int `yaml:"daily_limit"`

	// RequeueLapsed shows items graded Again once more before a session ends.
	RequeueLapsed bool `yaml:"requeue_lapsed"`

	Scheduler spacedrep.Config   `yaml:"scheduler"`
	Retry     review.RetryConfig `yaml:"retry"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"` // Default: "vocab"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendSQLite,
		Redis:         RedisConfig{Prefix: "vocab"},
		LogMode:       "cli",
		Timezone:      "Local",
		DailyLimit:    0,
		RequeueLapsed: true,
		Scheduler:     spacedrep.DefaultConfig(),
		Retry:         review.DefaultRetryConfig(),
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/vocab/config.yaml, falling back to
// ~/.config/vocab/config.yaml.
func DefaultPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "vocab", "config.yaml"), nil
}

// Load builds the configuration: defaults, then the YAML file, then
// environment overrides. An empty path reads the default location and
// tolerates a missing file; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode unmarshals YAML over cfg, rejecting unknown keys.
func decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// ApplyEnv overrides fields from VOCAB_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("VOCAB_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("VOCAB_BACKEND"); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("VOCAB_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("VOCAB_LOG_MODE"); v != "" {
		c.LogMode = v
	}
	if v := os.Getenv("VOCAB_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("VOCAB_DAILY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VOCAB_DAILY_LIMIT: %w", err)
		}
		c.DailyLimit = n
	}
	if v := os.Getenv("VOCAB_MAX_INTERVAL_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VOCAB_MAX_INTERVAL_DAYS: %w", err)
		}
		c.Scheduler.MaxIntervalDays = n
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	switch c.Backend {
	case BackendSQLite:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("VOCAB_REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	switch strings.ToLower(c.LogMode) {
	case "cli", "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("unknown log mode: %q", c.LogMode)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.DailyLimit < 0 {
		return fmt.Errorf("daily limit must not be negative, got %d", c.DailyLimit)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialWait < 0 || c.Retry.MaxWait < 0 || c.Retry.Multiplier < 1 {
		return fmt.Errorf("invalid retry backoff %v/%v x%v", c.Retry.InitialWait, c.Retry.MaxWait, c.Retry.Multiplier)
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
