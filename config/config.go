// Package config loads engine and tooling settings from defaults, .env files,
// an optional config file and GRAFT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultResolvableCacheSize bounds the per-container resolvability cache.
const DefaultResolvableCacheSize = 4096

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GRAFT"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings shared by the engine and the graft command.
type Config struct {
	DetectCircularResolution bool       `mapstructure:"detect_circular_resolution"`
	ResolvableCacheSize      int        `mapstructure:"resolvable_cache_size"`
	LogLevel                 string     `mapstructure:"log_level"`
	LogFormat                string     `mapstructure:"log_format"`
	HTTP                     HTTPConfig `mapstructure:"http"`
}

// HTTPConfig configures the demo server of `graft serve`.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// Paths names the files Load reads. Both are optional.
type Paths struct {
	// File is a config file in any format viper understands.
	File string
	// EnvFiles are loaded into the process environment first. When empty,
	// ".env" is loaded if present.
	EnvFiles []string
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		DetectCircularResolution: false,
		ResolvableCacheSize:      DefaultResolvableCacheSize,
		LogLevel:                 "info",
		LogFormat:                "text",
		HTTP:                     HTTPConfig{Addr: ":8080"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("detect_circular_resolution", d.DetectCircularResolution)
	v.SetDefault("resolvable_cache_size", d.ResolvableCacheSize)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("http.addr", d.HTTP.Addr)
}

// Load reads configuration in priority order:
// 1. Default values
// 2. .env files (existing environment variables win)
// 3. Configuration file
// 4. Environment variables (GRAFT_ prefix)
func Load(paths Paths) (*Config, error) {
	if err := loadEnvFiles(paths.EnvFiles); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if paths.File != "" {
		v.SetConfigFile(paths.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", paths.File, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	return godotenv.Load(files...)
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	if c.ResolvableCacheSize <= 0 {
		return fmt.Errorf("%w: resolvable_cache_size must be positive, got %d", ErrInvalidConfig, c.ResolvableCacheSize)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NewLogger builds the logger described by the configuration.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, s)
	}
	return lvl, nil
}
