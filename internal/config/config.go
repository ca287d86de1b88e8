package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the project directory.
const FileName = "tally.yaml"

// Config represents the top-level tally.yaml configuration.
type Config struct {
	// Profile is the owner profile (YAML or JSON) listing the user's nodes.
	Profile    string           `yaml:"profile"`
	Input      string           `yaml:"input"`
	Database   string           `yaml:"database"`
	Bank       BankConfig       `yaml:"bank"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Import     ImportConfig     `yaml:"import"`
	Log        LogConfig        `yaml:"log"`
}

// BankConfig identifies the bank and its export format.
type BankConfig struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format"`
}

// ClassifierConfig tunes how records are turned into transactions.
type ClassifierConfig struct {
	OwnAccountName     string `yaml:"own_account_name"`
	FallbackTerminalID string `yaml:"fallback_terminal_id"`
}

// ImportConfig controls the import pipeline.
type ImportConfig struct {
	Workers int `yaml:"workers"`
	// Strict aborts the import on the first unclassifiable record.
	Strict bool `yaml:"strict"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads a tally.yaml file from disk. Fields missing from the file keep
// their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Import.Workers < 1 {
		return nil, fmt.Errorf("parsing config: import.workers must be at least 1, got %d", cfg.Import.Workers)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Profile:  "profile.yaml",
		Input:    "import",
		Database: "tally.db",
		Bank: BankConfig{
			Name:   "ING",
			Format: "ing",
		},
		Classifier: ClassifierConfig{
			OwnAccountName:     "My Account",
			FallbackTerminalID: "UNKNOWN_TERM_ID",
		},
		Import: ImportConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
