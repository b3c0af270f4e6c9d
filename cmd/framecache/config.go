package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/framecache/compress"
)

// Config holds CLI defaults. Flags override file values.
type Config struct {
	LogLevel   string        `yaml:"log_level"`  // debug, info, warn, error
	Compressor string        `yaml:"compressor"` // lz4, zstd, s2
	Reduced    bool          `yaml:"reduced"`
	FPS        float64       `yaml:"fps"`
	Remote     string        `yaml:"remote"` // s3://bucket/prefix, minio://host/bucket/prefix, file:///dir
	Dir        DirConfig     `yaml:"dir"`
	Builds     BuildsConfig  `yaml:"builds"`
	Transfer   TransferLimit `yaml:"transfer"`
}

// DirConfig configures the cache directory.
type DirConfig struct {
	MaxSizeBytes int64 `yaml:"max_size_bytes"`
}

// BuildsConfig bounds cache builds.
type BuildsConfig struct {
	Concurrency int64   `yaml:"concurrency"`
	PerSecond   float64 `yaml:"per_second"`
}

// TransferLimit bounds mirror bandwidth.
type TransferLimit struct {
	BytesPerSecond int64 `yaml:"bytes_per_second"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:   "info",
		Compressor: "lz4",
		FPS:        30,
		Builds:     BuildsConfig{Concurrency: 1},
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := compress.ByName(c.Compressor); err != nil {
		return err
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %v", c.FPS)
	}
	if c.Builds.Concurrency < 0 || c.Builds.PerSecond < 0 || c.Transfer.BytesPerSecond < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
