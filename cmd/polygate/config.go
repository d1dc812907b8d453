package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config drives a polygate instance, loaded from one YAML file:
//
//	listen: ":8080"
//	backend:
//	  scheme: fs
//	  options:
//	    root: /srv/objects
//	metrics:
//	  enabled: true
//	  path: /metrics
//	log:
//	  level: info
type Config struct {
	Listen       string        `yaml:"listen"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	Backend      BackendConfig `yaml:"backend"`
	Metrics      MetricsConfig `yaml:"metrics"`
	Log          LogConfig     `yaml:"log"`
}

// BackendConfig selects the storage backend the gateway serves.
type BackendConfig struct {
	Scheme  string            `yaml:"scheme"`
	Options map[string]string `yaml:"options"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig controls the gateway's logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func defaultConfig() *Config {
	return &Config{
		Listen:       ":8080",
		MaxBodyBytes: 32 << 20,
		Metrics:      MetricsConfig{Enabled: true, Path: "/metrics"},
		Log:          LogConfig{Level: "info"},
	}
}

// LoadConfig reads and validates a configuration file. Absent keys keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Backend.Scheme == "" {
		return errors.New("backend.scheme is required")
	}
	if c.Listen == "" {
		return errors.New("listen must not be empty")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max_body_bytes must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return errors.New("metrics.path must not be empty when metrics are enabled")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
