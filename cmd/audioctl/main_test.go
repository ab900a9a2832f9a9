package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dwetherby/audioctl/internal/infrastructure/logging"
)

func TestLoadConfig_DefaultsWhenFileMissing(t *testing.T) {
	// An empty working directory has no configs/config.yaml.
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getting working directory: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("changing directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
	t.Setenv("AUDIOCTL_CONFIG", "")

	cfg, err := loadConfig(logging.Default())
	if err != nil {
		t.Fatalf("loadConfig() error = %v, want built-in defaults", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API port = %d, want default 8080", cfg.API.Port)
	}
	if cfg.Bluetooth.Binary != "bluetoothctl" {
		t.Errorf("bluetooth binary = %q, want default", cfg.Bluetooth.Binary)
	}
}

func TestLoadConfig_ExplicitPathMustExist(t *testing.T) {
	t.Setenv("AUDIOCTL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := loadConfig(logging.Default()); err == nil {
		t.Error("loadConfig() = nil error, want failure for an explicit missing path")
	}
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  port: 9191\n"), 0o600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	t.Setenv("AUDIOCTL_CONFIG", path)

	cfg, err := loadConfig(logging.Default())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.API.Port != 9191 {
		t.Errorf("API port = %d, want 9191 from the file", cfg.API.Port)
	}
}
