package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the hitcall configuration file
type Config struct {
	// Debug disables secret redaction in the audit log
	Debug bool      `yaml:"debug,omitempty"`
	Log   LogConfig `yaml:"log,omitempty"`
	// HTTP maps a client name to its request configuration tree
	HTTP map[string]map[string]any `yaml:"http,omitempty"`
}

// LogConfig holds logging options
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug|info|warn|error
	Format string `yaml:"format,omitempty"` // json|console
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".hitcall.yaml",
	"hitcall.yaml",
	".hitcall.yml",
	"hitcall.yml",
	"hitcall.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	if path := FindConfigFile(dir); path != "" {
		return loadConfigFromFile(path)
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// FindConfigFile returns the first known config file present in dir, or ""
func FindConfigFile(dir string) string {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}
	return ""
}

// loadConfigFromFile loads configuration from a specific file. JSON files
// parse as well since JSON is a subset of YAML.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes a YAML or JSON document into a Config on top of the defaults
func Parse(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if config.HTTP == nil {
		config.HTTP = make(map[string]map[string]any)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence.
// Client trees present in both are deep merged.
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Debug {
		result.Debug = true
	}
	if other.Log.Level != "" {
		result.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		result.Log.Format = other.Log.Format
	}

	result.HTTP = make(map[string]map[string]any, len(c.HTTP)+len(other.HTTP))
	for name, tree := range c.HTTP {
		result.HTTP[name] = CopyTree(tree)
	}
	for name, tree := range other.HTTP {
		result.HTTP[name] = DeepMerge(result.HTTP[name], tree)
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
