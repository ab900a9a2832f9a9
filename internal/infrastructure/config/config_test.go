package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
api:
  host: "127.0.0.1"
  port: 9090
audio:
  binary: "/usr/bin/pactl"
bluetooth:
  scan_window: 15
  pair_timeout: 20
database:
  path: "/tmp/audioctl-test.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 9090)
	}
	if cfg.Audio.Binary != "/usr/bin/pactl" {
		t.Errorf("Audio.Binary = %q, want %q", cfg.Audio.Binary, "/usr/bin/pactl")
	}
	if cfg.Bluetooth.ScanWindow != 15 {
		t.Errorf("Bluetooth.ScanWindow = %d, want %d", cfg.Bluetooth.ScanWindow, 15)
	}

	// Values not in the file keep their defaults
	if cfg.Bluetooth.ConnectTimeout != 30 {
		t.Errorf("Bluetooth.ConnectTimeout = %d, want default %d", cfg.Bluetooth.ConnectTimeout, 30)
	}
	if cfg.Bluetooth.Binary != "bluetoothctl" {
		t.Errorf("Bluetooth.Binary = %q, want default %q", cfg.Bluetooth.Binary, "bluetoothctl")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "missing audio binary",
			mutate:  func(c *Config) { c.Audio.Binary = "" },
			wantErr: true,
		},
		{
			name:    "zero scan window",
			mutate:  func(c *Config) { c.Bluetooth.ScanWindow = 0 },
			wantErr: true,
		},
		{
			name:    "zero pair timeout",
			mutate:  func(c *Config) { c.Bluetooth.PairTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AUDIOCTL_API_HOST", "10.0.0.5")
	t.Setenv("AUDIOCTL_API_PORT", "8181")
	t.Setenv("AUDIOCTL_DATABASE_PATH", "/var/lib/audioctl/audioctl.db")

	cfg := Default()

	if cfg.API.Host != "10.0.0.5" {
		t.Errorf("API.Host = %q, want env override %q", cfg.API.Host, "10.0.0.5")
	}
	if cfg.API.Port != 8181 {
		t.Errorf("API.Port = %d, want env override %d", cfg.API.Port, 8181)
	}
	if cfg.Database.Path != "/var/lib/audioctl/audioctl.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.Bluetooth.ScanWindowDuration().Seconds(); got != 10 {
		t.Errorf("ScanWindowDuration() = %vs, want 10s", got)
	}
	if got := cfg.Bluetooth.PairTimeoutDuration().Seconds(); got != 30 {
		t.Errorf("PairTimeoutDuration() = %vs, want 30s", got)
	}
	if got := cfg.Audio.CommandTimeoutDuration().Seconds(); got != 5 {
		t.Errorf("Audio CommandTimeoutDuration() = %vs, want 5s", got)
	}
}
