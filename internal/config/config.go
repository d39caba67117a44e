// Package config loads the service configuration from YAML over built-in
// defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// #region types

// Config is the root service configuration.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Journal    JournalConfig    `yaml:"journal"`
	Reputation ReputationConfig `yaml:"reputation"`
	Report     ReportConfig     `yaml:"report"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EngineConfig seeds the deterministic core and names its state documents.
type EngineConfig struct {
	Seed      int64  `yaml:"seed"`
	WordsPath string `yaml:"words_path"`
	StatePath string `yaml:"state_path"`
}

// JournalConfig names the SQLite database holding the classification history.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// ReputationConfig controls source scoring.
type ReputationConfig struct {
	Enabled      bool `yaml:"enabled"`
	BanThreshold int  `yaml:"ban_threshold"`
}

// ReportConfig controls abuse report delivery for banned sources.
type ReportConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// IngestConfig names the access-log source; an empty source reads stdin.
type IngestConfig struct {
	Source string `yaml:"source"`
}

// LoggingConfig selects the zap preset.
type LoggingConfig struct {
	Development bool `yaml:"development"`
}

// #endregion types

// #region load

// DefaultConfig returns the defaults for a local deployment.
func DefaultConfig() Config {
	return Config{
		Engine: EngineConfig{
			Seed:      1,
			WordsPath: "data/words.json",
			StatePath: "data/state.json",
		},
		Journal: JournalConfig{Path: "data/logmind.db"},
		Reputation: ReputationConfig{
			Enabled:      true,
			BanThreshold: 3,
		},
		Report: ReportConfig{TimeoutSeconds: 10},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9477",
		},
	}
}

// Load reads path over the defaults; an empty path returns the defaults
// untouched.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// #endregion load
