package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all boardstore configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Persistence tiers
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "boardstore",
		Version: "1.0.0",

		Storage: DefaultStorageConfig(),

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("BOARDSTORE_DB"); path != "" {
		c.Storage.Metadata.Path = path
	}
	if driver := os.Getenv("BOARDSTORE_DB_DRIVER"); driver != "" {
		c.Storage.Metadata.Driver = driver
	}
	if dir := os.Getenv("BOARDSTORE_DIR"); dir != "" {
		c.Storage.Directory.Path = dir
	}
	if level := os.Getenv("BOARDSTORE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
		c.Logging.DebugMode = true
	}
}

// GetActivationWindow returns how long a user gesture stays usable.
func (c *Config) GetActivationWindow() time.Duration {
	d, err := time.ParseDuration(c.Storage.Directory.ActivationWindow)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// GetBusyTimeout returns the metadata database busy timeout.
func (c *Config) GetBusyTimeout() time.Duration {
	d, err := time.ParseDuration(c.Storage.Metadata.BusyTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// ValidDrivers lists the supported metadata database drivers.
var ValidDrivers = []string{"sqlite", "bolt"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validDriver := false
	for _, d := range ValidDrivers {
		if c.Storage.Metadata.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid metadata driver: %s (valid: %v)", c.Storage.Metadata.Driver, ValidDrivers)
	}

	if c.Storage.Metadata.Path == "" {
		return fmt.Errorf("metadata database path not configured (set storage.metadata.path or BOARDSTORE_DB)")
	}

	if lvl := c.Storage.Compression.Level; lvl < -2 || lvl > 9 {
		return fmt.Errorf("invalid compression level: %d (valid: -2..9)", lvl)
	}

	if c.Storage.Keys.ContentPrefix == "" {
		return fmt.Errorf("content key prefix must not be empty")
	}

	if c.Storage.Sync.Concurrency < 1 {
		return fmt.Errorf("sync concurrency must be at least 1, got %d", c.Storage.Sync.Concurrency)
	}

	return nil
}
