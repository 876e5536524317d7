package config

import (
	"log/slog"
	"strings"
	"time"
)

// Config holds collate configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Image    ImageCfg `mapstructure:"image" yaml:"image" json:"image"`
	PDF      PDFCfg   `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
	Workers  int      `mapstructure:"workers" yaml:"workers" json:"workers"`       // Concurrent inputs per run (1 = sequential)
	LogLevel string   `mapstructure:"log_level" yaml:"log_level" json:"log_level"` // debug, info, warn, error
	Watch    WatchCfg `mapstructure:"watch" yaml:"watch" json:"watch"`
}

// ImageCfg configures raster image normalization.
type ImageCfg struct {
	DPI int `mapstructure:"dpi" yaml:"dpi" json:"dpi"` // Resolution used to size image pages
}

// PDFCfg configures PDF reading and writing.
type PDFCfg struct {
	Validation string `mapstructure:"validation" yaml:"validation" json:"validation"` // "relaxed" or "strict"
}

// WatchCfg configures blob watch mode.
type WatchCfg struct {
	DebounceMS int `mapstructure:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"` // Quiet period before rebuilding
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Image: ImageCfg{
			DPI: 100,
		},
		PDF: PDFCfg{
			Validation: "relaxed",
		},
		Workers:  1,
		LogLevel: "info",
		Watch: WatchCfg{
			DebounceMS: 500,
		},
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debounce returns the watch debounce interval.
func (c *Config) Debounce() time.Duration {
	if c.Watch.DebounceMS <= 0 {
		return 0
	}
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}
