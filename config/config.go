// Package config defines the Inkwell application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Inkwell configuration.
type Config struct {
	Server   ServerConfig     `json:"server" yaml:"server"`
	Provider ProviderDefaults `json:"provider" yaml:"provider"`
	Stream   StreamConfig     `json:"stream" yaml:"stream"`
	DataDir  string           `json:"data_dir" yaml:"data_dir"`
	LogLevel string           `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":8787"
}

// ProviderDefaults seeds the provider settings of newly created projects.
// Each project can override every field.
type ProviderDefaults struct {
	Name        string  `json:"name" yaml:"name"`
	BaseURL     string  `json:"base_url" yaml:"base_url"` // includes the version segment, e.g. https://api.openai.com/v1
	Model       string  `json:"model,omitempty" yaml:"model"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// StreamConfig tunes generation streaming.
type StreamConfig struct {
	// PartialWriteEvery is how many deltas to accumulate before the
	// running result is persisted. 1 writes after every delta.
	PartialWriteEvery int `json:"partial_write_every" yaml:"partial_write_every"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8787",
		},
		Provider: ProviderDefaults{
			Name:        "openai",
			BaseURL:     "https://api.openai.com/v1",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Stream: StreamConfig{
			PartialWriteEvery: 1,
		},
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads a YAML config file and returns the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
