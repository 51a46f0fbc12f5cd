package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/engramhq/engram-go/config"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Expected a missing file to load defaults, got %v", err)
	}
	if cfg.DBPath != "engram.db" || cfg.HotWindowDays != 30 || cfg.ContextWindow != 5 || cfg.ActiveLimit != 20 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestLoad_OverlaysFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engram.yaml")
	content := []byte("db_path: /tmp/custom.db\nmodel: claude-sonnet-4-20250514\nsemantic:\n  enabled: true\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Errorf("Expected db_path overridden, got %q", cfg.DBPath)
	}
	if !cfg.Semantic.Enabled {
		t.Error("Expected semantic enabled")
	}
	// Fields absent from the file keep their defaults.
	if cfg.HotWindowDays != 30 || cfg.ListenURL == "" {
		t.Errorf("Expected defaults preserved, got %+v", cfg)
	}
}

func TestLoad_BadYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engram.yaml")
	if err := os.WriteFile(path, []byte("db_path: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Error("Expected malformed YAML to error")
	}
}
