package config

import (
	"os"
	"path/filepath"
	"testing"
)

// 1. No file: defaults come back untouched.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Seed != 1 || cfg.Engine.StatePath != "data/state.json" {
		t.Errorf("engine defaults wrong: %+v", cfg.Engine)
	}
	if cfg.Journal.Path != "data/logmind.db" {
		t.Errorf("journal default wrong: %q", cfg.Journal.Path)
	}
	if !cfg.Reputation.Enabled || cfg.Reputation.BanThreshold != 3 {
		t.Errorf("reputation defaults wrong: %+v", cfg.Reputation)
	}
	if cfg.Report.Enabled {
		t.Error("report delivery enabled by default")
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != ":9477" {
		t.Errorf("metrics defaults wrong: %+v", cfg.Metrics)
	}
}

// 2. A file overrides what it names and leaves the rest at defaults.
func TestLoad_PartialOverride(t *testing.T) {
	body := `
engine:
  seed: 42
  state_path: /var/lib/logmind/state.json
report:
  enabled: true
  endpoint: https://abuse.example.com/v1/incidents
logging:
  development: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Engine.Seed)
	}
	if cfg.Engine.StatePath != "/var/lib/logmind/state.json" {
		t.Errorf("StatePath = %q", cfg.Engine.StatePath)
	}
	if cfg.Engine.WordsPath != "data/words.json" {
		t.Errorf("unset WordsPath lost its default: %q", cfg.Engine.WordsPath)
	}
	if !cfg.Report.Enabled || cfg.Report.Endpoint != "https://abuse.example.com/v1/incidents" {
		t.Errorf("report override lost: %+v", cfg.Report)
	}
	if cfg.Report.TimeoutSeconds != 10 {
		t.Errorf("unset TimeoutSeconds lost its default: %d", cfg.Report.TimeoutSeconds)
	}
	if !cfg.Logging.Development {
		t.Error("logging override lost")
	}
}

// 3. Missing files and invalid YAML are errors.
func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file accepted")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte(":\n  - ]["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("invalid YAML accepted")
	}
}
