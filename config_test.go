package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Queue.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %d", cfg.Queue.MaxWorkers)
	}
	if cfg.Spooler.Endpoint != "http://localhost:631" {
		t.Errorf("Endpoint = %s", cfg.Spooler.Endpoint)
	}
	if !cfg.Discovery.MDNSEnabled {
		t.Error("mDNS should default on")
	}
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allpress.toml")
	content := `
[queue]
max_workers = 8
max_depth = 50

[spooler]
endpoint = "http://cups.internal:631"

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Queue.MaxWorkers != 8 || cfg.Queue.MaxDepth != 50 {
		t.Errorf("queue config = %+v", cfg.Queue)
	}
	if cfg.Spooler.Endpoint != "http://cups.internal:631" {
		t.Errorf("endpoint = %s", cfg.Spooler.Endpoint)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %s", cfg.Logging.Level)
	}
	// Sections absent from the file keep their defaults
	if cfg.Web.HTTPPort != 8080 {
		t.Errorf("port = %d", cfg.Web.HTTPPort)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("QUEUE_MAX_WORKERS", "2")
	t.Setenv("SPOOLER_ENDPOINT", "http://other:631")
	t.Setenv("LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "allpress.toml")
	if err := os.WriteFile(path, []byte("[queue]\nmax_workers = 16\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Queue.MaxWorkers != 2 {
		t.Errorf("env override lost: MaxWorkers = %d", cfg.Queue.MaxWorkers)
	}
	if cfg.Spooler.Endpoint != "http://other:631" {
		t.Errorf("endpoint = %s", cfg.Spooler.Endpoint)
	}
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("level = %s", cfg.Logging.Level)
	}
}

func TestLoadConfigMissingFileFails(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for explicit missing config path")
	}
}

func TestWriteAndReloadDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "allpress.toml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Queue.MaxWorkers != DefaultConfig().Queue.MaxWorkers {
		t.Errorf("round trip changed MaxWorkers: %d", cfg.Queue.MaxWorkers)
	}
}
