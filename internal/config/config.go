// internal/config/config.go

package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	LogLevel string `koanf:"log_level"` // "debug", "info", "warn", "error" (default: "info")
	LogFile  string `koanf:"log_file"`  // path to log file; empty means XDG state dir

	// StateDB overrides the session database location (default: XDG data dir)
	StateDB string `koanf:"state_db"`

	// WatchdogSeconds bounds how long a reconciliation waits for the sources.
	// 0 keeps the built-in default, negative disables the bound.
	WatchdogSeconds int `koanf:"watchdog_seconds"`

	// Demo source settings
	Video      SourceConfig `koanf:"video"`
	Whiteboard SourceConfig `koanf:"whiteboard"`
}

// SourceConfig holds the simulated source parameters for the demo.
type SourceConfig struct {
	DurationSeconds int `koanf:"duration_seconds"` // stream length (default: 600)
	StartupDelayMs  int `koanf:"startup_delay_ms"` // time before the source reports ready (default: 0)
	SeekDelayMs     int `koanf:"seek_delay_ms"`    // simulated seek latency (default: 50)
	TickMs          int `koanf:"tick_ms"`          // position advance interval (default: 100)
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		LogLevel: "info",
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.LogFile != "" {
		cfg.LogFile = expandPath(cfg.LogFile)
	}
	if cfg.StateDB != "" {
		cfg.StateDB = expandPath(cfg.StateDB)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/lockstep/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lockstep", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Watchdog returns the configured watchdog bound as a duration; zero keeps
// the engine default.
func (c *Config) Watchdog() time.Duration {
	return time.Duration(c.WatchdogSeconds) * time.Second
}

// GetVideoConfig returns the video source configuration with defaults applied.
func (c *Config) GetVideoConfig() SourceConfig {
	return withSourceDefaults(c.Video)
}

// GetWhiteboardConfig returns the whiteboard source configuration with
// defaults applied.
func (c *Config) GetWhiteboardConfig() SourceConfig {
	return withSourceDefaults(c.Whiteboard)
}

func withSourceDefaults(cfg SourceConfig) SourceConfig {
	if cfg.DurationSeconds <= 0 {
		cfg.DurationSeconds = 600
	}
	if cfg.StartupDelayMs < 0 {
		cfg.StartupDelayMs = 0
	}
	if cfg.SeekDelayMs <= 0 {
		cfg.SeekDelayMs = 50
	}
	if cfg.TickMs <= 0 {
		cfg.TickMs = 100
	}
	return cfg
}

// Duration returns the stream length as a duration.
func (s SourceConfig) Duration() time.Duration {
	return time.Duration(s.DurationSeconds) * time.Second
}

// StartupDelay returns the readiness delay as a duration.
func (s SourceConfig) StartupDelay() time.Duration {
	return time.Duration(s.StartupDelayMs) * time.Millisecond
}

// SeekDelay returns the seek latency as a duration.
func (s SourceConfig) SeekDelay() time.Duration {
	return time.Duration(s.SeekDelayMs) * time.Millisecond
}

// Tick returns the position advance interval as a duration.
func (s SourceConfig) Tick() time.Duration {
	return time.Duration(s.TickMs) * time.Millisecond
}
