// Package config provides configuration loading and management for semtype.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/semtype/instance"
	"github.com/c360studio/semtype/vocabulary/emf"
	"gopkg.in/yaml.v3"
)

// Config represents the complete semtype configuration
type Config struct {
	Migration MigrationConfig `yaml:"migration"`
	Fixtures  FixturesConfig  `yaml:"fixtures"`
	NATS      NATSConfig      `yaml:"nats"`
}

// MigrationConfig configures type change behavior
type MigrationConfig struct {
	// SkippedClasses are never offered as allowed super types (compact or full IRIs)
	SkippedClasses []string `yaml:"skipped_classes"`
	// InitialState is the state instances fall back to (default: INIT)
	InitialState string `yaml:"initial_state"`
	// ChangeTypeOperation is the state transition operation of a type change
	ChangeTypeOperation string `yaml:"change_type_operation"`
}

// FixturesConfig points at the file based model and data
type FixturesConfig struct {
	// Path is a directory holding classes.yaml, codelists.yaml,
	// instances.yaml and definitions/**/*.yaml
	Path string `yaml:"path"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = work on fixtures only)
	URL string `yaml:"url"`
	// Bucket is the KV bucket holding instances
	Bucket string `yaml:"bucket"`
	// Publish enables publishing type change events to the graph
	Publish bool `yaml:"publish"`
	// Timeout bounds connection attempts
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Migration: MigrationConfig{
			SkippedClasses:      []string{emf.ClassProtonDocument, emf.ClassMedia},
			InitialState:        instance.StateInitial,
			ChangeTypeOperation: instance.OperationChangeType,
		},
		Fixtures: FixturesConfig{
			Path: "",
		},
		NATS: NATSConfig{
			URL:     "",
			Bucket:  "SEMTYPE_INSTANCES",
			Publish: false,
			Timeout: 10 * time.Second,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Migration.InitialState == "" {
		return fmt.Errorf("migration.initial_state is required")
	}
	if c.Migration.ChangeTypeOperation == "" {
		return fmt.Errorf("migration.change_type_operation is required")
	}
	for _, class := range c.Migration.SkippedClasses {
		if class == "" {
			return fmt.Errorf("migration.skipped_classes must not contain empty entries")
		}
	}
	if c.NATS.URL != "" && c.NATS.Bucket == "" {
		return fmt.Errorf("nats.bucket is required when nats.url is set")
	}
	if c.NATS.Publish && c.NATS.URL == "" {
		return fmt.Errorf("nats.publish requires nats.url")
	}
	if c.NATS.Timeout < 0 {
		return fmt.Errorf("nats.timeout must not be negative")
	}
	return nil
}

// SkippedClassIRIs returns the skipped classes as full IRIs
func (c *Config) SkippedClassIRIs() []string {
	result := make([]string, 0, len(c.Migration.SkippedClasses))
	for _, class := range c.Migration.SkippedClasses {
		result = append(result, emf.Expand(class))
	}
	return result
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := readFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// readFile decodes a YAML file into config
func readFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// Relative fixture paths are resolved against the config file
	if config.Fixtures.Path != "" && !filepath.IsAbs(config.Fixtures.Path) {
		config.Fixtures.Path = filepath.Join(filepath.Dir(path), config.Fixtures.Path)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Migration
	if len(other.Migration.SkippedClasses) > 0 {
		c.Migration.SkippedClasses = append([]string(nil), other.Migration.SkippedClasses...)
	}
	if other.Migration.InitialState != "" {
		c.Migration.InitialState = other.Migration.InitialState
	}
	if other.Migration.ChangeTypeOperation != "" {
		c.Migration.ChangeTypeOperation = other.Migration.ChangeTypeOperation
	}

	// Fixtures
	if other.Fixtures.Path != "" {
		c.Fixtures.Path = other.Fixtures.Path
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Bucket != "" {
		c.NATS.Bucket = other.NATS.Bucket
	}
	if other.NATS.Publish {
		c.NATS.Publish = true
	}
	if other.NATS.Timeout != 0 {
		c.NATS.Timeout = other.NATS.Timeout
	}
}
