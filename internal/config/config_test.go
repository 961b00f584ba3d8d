package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, expected 1", cfg.Version)
	}
	if len(cfg.Scan.Extensions) == 0 {
		t.Error("expected default scan extensions")
	}
	if cfg.Cache.PatternTtlSeconds != 3600 {
		t.Errorf("PatternTtlSeconds = %d, expected 3600", cfg.Cache.PatternTtlSeconds)
	}
	if cfg.Orchestrator.MaxWorkers <= 0 {
		t.Error("expected positive MaxWorkers")
	}
}

func TestLoadMissingConfigUsesDefaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ProjectRoot != root {
		t.Errorf("ProjectRoot = %q, expected %q", cfg.ProjectRoot, root)
	}
	if cfg.Cache.PatternTtlSeconds != DefaultConfig().Cache.PatternTtlSeconds {
		t.Error("defaults not applied for missing config file")
	}
}

func TestLoadPartialConfigMergesDefaults(t *testing.T) {
	root := t.TempDir()
	stateDir := filepath.Join(root, ".sca")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatal(err)
	}

	content := "cache:\n  patternTtlSeconds: 60\nscan:\n  extensions:\n    - .go\n    - .py\n"
	if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Cache.PatternTtlSeconds != 60 {
		t.Errorf("PatternTtlSeconds = %d, expected 60", cfg.Cache.PatternTtlSeconds)
	}
	if len(cfg.Scan.Extensions) != 2 {
		t.Errorf("Extensions = %v, expected two entries", cfg.Scan.Extensions)
	}
	// Untouched sections keep defaults
	if cfg.Orchestrator.MaxWorkers != DefaultConfig().Orchestrator.MaxWorkers {
		t.Error("orchestrator defaults not preserved")
	}
}
