// Package config provides configuration loading for scalegrid. Settings come
// from a YAML file with sensible defaults; command-line flags override them.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"scalegrid/signalhandler"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Analysis parameters
	Analysis struct {
		// MarginFraction is the containment tolerance as a fraction of the
		// parent's field of view
		MarginFraction float64 `yaml:"marginFraction"`
	} `yaml:"analysis"`

	// Storage locations
	Storage struct {
		// CollectionsDir is where collection JSON files are written
		CollectionsDir string `yaml:"collectionsDir"`

		// MetadataDir is where per-sample CSV caches and info files live
		MetadataDir string `yaml:"metadataDir"`

		// DatabasePath is the sqlite catalog file
		DatabasePath string `yaml:"databasePath"`
	} `yaml:"storage"`

	// Scan parameters
	Scan struct {
		// MaxWorkers bounds the concurrent metadata extractions
		MaxWorkers int `yaml:"maxWorkers"`

		// Verbose controls progress output during scanning
		Verbose bool `yaml:"verbose"`
	} `yaml:"scan"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Analysis.MarginFraction = 0.05

	cfg.Storage.CollectionsDir = "collections"
	cfg.Storage.MetadataDir = "metadata"
	cfg.Storage.DatabasePath = "scalegrid.db"

	cfg.Scan.MaxWorkers = signalhandler.GetOptimalProcs()
	cfg.Scan.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
