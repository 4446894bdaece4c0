// Package config loads rxflow.toml and environment overrides for the CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "rxflow.toml"

// Environment overrides.
const (
	EnvLogLevel = "RXFLOW_LOG_LEVEL"
	EnvDB       = "RXFLOW_DB"
)

// Config holds CLI defaults. Flags override it.
type Config struct {
	// Format is the output format, text or json.
	Format string
	// DB is the run store path. Empty disables persistence.
	DB string
	// Timeout bounds a run. Zero means no limit.
	Timeout time.Duration
	// MaxValues is the per-run value quota. Zero disables it.
	MaxValues int
	LogLevel  slog.Level
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Format:    "text",
		Timeout:   30 * time.Second,
		MaxValues: 10000,
		LogLevel:  slog.LevelWarn,
	}
}

type fileConfig struct {
	Format    string `toml:"format"`
	DB        string `toml:"db"`
	Timeout   string `toml:"timeout"`
	MaxValues int    `toml:"max_values"`
	LogLevel  string `toml:"log_level"`
}

// Load decodes path over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("format") {
		format := strings.TrimSpace(raw.Format)
		if format != "text" && format != "json" {
			return Config{}, fmt.Errorf("parse format: must be text or json, got %q", format)
		}
		cfg.Format = format
	}
	if meta.IsDefined("db") {
		cfg.DB = strings.TrimSpace(raw.DB)
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		if d < 0 {
			return Config{}, fmt.Errorf("parse timeout: must not be negative, got %s", d)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("max_values") {
		if raw.MaxValues < 0 {
			return Config{}, fmt.Errorf("parse max_values: must not be negative, got %d", raw.MaxValues)
		}
		cfg.MaxValues = raw.MaxValues
	}
	if meta.IsDefined("log_level") {
		lvl, ok := ParseLevel(raw.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		cfg.LogLevel = lvl
	}
	return cfg, nil
}

// LoadOptional loads path when it exists and returns the defaults
// otherwise.
func LoadOptional(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// ApplyEnv applies the environment overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if lvl, ok := ParseLevel(getenv(EnvLogLevel)); ok {
		c.LogLevel = lvl
	}
	if db := strings.TrimSpace(getenv(EnvDB)); db != "" {
		c.DB = db
	}
}

// ParseLevel parses a level name or a numeric slog level.
func ParseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return slog.LevelInfo, false
	case "debug", "trace":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return slog.LevelInfo, false
	}
	return slog.Level(n), true
}
