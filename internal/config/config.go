// Package config loads tasktree settings from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/AnatoleLucet/tasktree"
)

var ErrUnsupportedFormat = errors.New("unsupported config format")

type Config struct {
	Log     LogConfig            `toml:"log" yaml:"log"`
	Trail   tasktree.TrailConfig `toml:"trail" yaml:"trail"`
	Report  ReportConfig         `toml:"report" yaml:"report"`
	Metrics MetricsConfig        `toml:"metrics" yaml:"metrics"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

type ReportConfig struct {
	// SinkDir, when set, mirrors outlines into JSONL streams under this directory.
	SinkDir    string `toml:"sink_dir" yaml:"sink_dir"`
	ActiveKey  string `toml:"active_key" yaml:"active_key"`
	ArchiveKey string `toml:"archive_key" yaml:"archive_key"`
}

type MetricsConfig struct {
	// Addr, when set, serves Prometheus metrics on /metrics.
	Addr string `toml:"addr" yaml:"addr"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Report: ReportConfig{
			ActiveKey:  "outline:active",
			ArchiveKey: "outline:inactive",
		},
	}
}

// Load reads path over the defaults. The format is picked from the file extension.
// An empty path gives the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}
