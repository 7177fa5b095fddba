// internal/config/config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/lockstep",
			expected: filepath.Join(home, "lockstep"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/var/lib/lockstep",
			expected: "/var/lib/lockstep",
		},
		{
			name:     "relative path unchanged",
			input:    "data/lockstep.db",
			expected: "data/lockstep.db",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) == 0 {
		t.Fatal("getConfigPaths() returned empty slice")
	}

	// Last path should be local config.toml
	lastPath := paths[len(paths)-1]
	if lastPath != "config.toml" {
		t.Errorf("last config path = %q, want %q", lastPath, "config.toml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		expectedFirst := filepath.Join(home, ".config", "lockstep", "config.toml")
		if paths[0] != expectedFirst {
			t.Errorf("first config path = %q, want %q", paths[0], expectedFirst)
		}
	}
}

func TestSourceConfigDefaults(t *testing.T) {
	cfg := Config{}

	video := cfg.GetVideoConfig()
	if video.DurationSeconds != 600 {
		t.Errorf("DurationSeconds = %d, want 600", video.DurationSeconds)
	}
	if video.SeekDelayMs != 50 {
		t.Errorf("SeekDelayMs = %d, want 50", video.SeekDelayMs)
	}
	if video.TickMs != 100 {
		t.Errorf("TickMs = %d, want 100", video.TickMs)
	}
	if video.StartupDelayMs != 0 {
		t.Errorf("StartupDelayMs = %d, want 0", video.StartupDelayMs)
	}
}

func TestSourceConfigCustomValues(t *testing.T) {
	cfg := Config{
		Whiteboard: SourceConfig{
			DurationSeconds: 300,
			StartupDelayMs:  500,
			SeekDelayMs:     25,
			TickMs:          50,
		},
	}

	wb := cfg.GetWhiteboardConfig()
	if wb.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %v, want %v", wb.Duration(), 5*time.Minute)
	}
	if wb.StartupDelay() != 500*time.Millisecond {
		t.Errorf("StartupDelay() = %v, want %v", wb.StartupDelay(), 500*time.Millisecond)
	}
	if wb.SeekDelay() != 25*time.Millisecond {
		t.Errorf("SeekDelay() = %v, want %v", wb.SeekDelay(), 25*time.Millisecond)
	}
	if wb.Tick() != 50*time.Millisecond {
		t.Errorf("Tick() = %v, want %v", wb.Tick(), 50*time.Millisecond)
	}
}

func TestWatchdog(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int
		expected time.Duration
	}{
		{name: "zero keeps engine default", seconds: 0, expected: 0},
		{name: "positive bound", seconds: 10, expected: 10 * time.Second},
		{name: "negative disables", seconds: -1, expected: -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{WatchdogSeconds: tt.seconds}
			if got := cfg.Watchdog(); got != tt.expected {
				t.Errorf("Watchdog() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLoad_BasicConfig(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not change to temp directory: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	configContent := `
log_level = "debug"
state_db = "~/lockstep/state.db"
watchdog_seconds = 15

[video]
duration_seconds = 120

[whiteboard]
duration_seconds = 90
startup_delay_ms = 250
`
	if err := os.WriteFile("config.toml", []byte(configContent), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.WatchdogSeconds != 15 {
		t.Errorf("WatchdogSeconds = %d, want 15", cfg.WatchdogSeconds)
	}

	home, _ := os.UserHomeDir()
	expectedDB := filepath.Join(home, "lockstep", "state.db")
	if cfg.StateDB != expectedDB {
		t.Errorf("StateDB = %q, want %q", cfg.StateDB, expectedDB)
	}

	if cfg.Video.DurationSeconds != 120 {
		t.Errorf("Video.DurationSeconds = %d, want 120", cfg.Video.DurationSeconds)
	}
	if cfg.Whiteboard.StartupDelayMs != 250 {
		t.Errorf("Whiteboard.StartupDelayMs = %d, want 250", cfg.Whiteboard.StartupDelayMs)
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not change to temp directory: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	if err := os.WriteFile("config.toml", []byte("invalid = [[["), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	_, err = Load()
	if err == nil {
		t.Error("Load() expected error for invalid TOML, got nil")
	}
}
