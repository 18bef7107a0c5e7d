package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/timeit/internal/stats"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultCount                  = 10
	DefaultMaxConsecutiveFailures = 5
	DefaultAssertor               = "default"
	DefaultExporter               = "console"
)

// LoadConfig loads, schema-checks and parses a configuration file, then
// applies defaults and validates it.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := ValidateSchema(data, path); err != nil {
		return nil, err
	}

	cfg, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}

	if abs, err := filepath.Abs(path); err == nil {
		cfg.Path = abs
	} else {
		cfg.Path = path
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfig parses configuration data.
//
// The format is determined by the file extension in path, or defaults to YAML
// if the path is empty or has an unknown extension.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config (unknown format %s): %w", ext, err)
		}
	}

	return &cfg, nil
}

// ApplyDefaults fills unset run-wide values.
func ApplyDefaults(cfg *Config) {
	if cfg.Count <= 0 {
		cfg.Count = DefaultCount
	}
	if cfg.WarmUpCount < 0 {
		cfg.WarmUpCount = 0
	}
	if cfg.CoolDownCount < 0 {
		cfg.CoolDownCount = 0
	}
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	cfg.StatsOptions = cfg.StatsOptions.WithDefaults()

	if len(cfg.Assertors) == 0 {
		cfg.Assertors = []ExtensionConfig{{Name: DefaultAssertor}}
	}
	if len(cfg.Exporters) == 0 {
		cfg.Exporters = []ExtensionConfig{{Name: DefaultExporter}}
	}

	for i, sc := range cfg.Scenarios {
		if sc == nil {
			continue
		}
		if sc.Name == "" {
			sc.Name = fmt.Sprintf("Scenario %d", i+1)
		}
	}
}

// CircuitBreakerLimit returns the number of consecutive failures that stops
// the measured phase, or -1 when the breaker is disabled.
func (c *Config) CircuitBreakerLimit() int {
	if c.DebugMode || c.MaxConsecutiveFailures < 0 {
		return -1
	}
	if c.MaxConsecutiveFailures == 0 {
		return DefaultMaxConsecutiveFailures
	}
	return c.MaxConsecutiveFailures
}

// Dir returns the directory of the configuration file, or the current
// directory for configurations built in memory.
func (c *Config) Dir() string {
	if c.Path != "" {
		return filepath.Dir(c.Path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// Filter returns the stats options with defaults filled in.
func (c *Config) Filter() stats.FilterOptions {
	return c.StatsOptions.WithDefaults()
}
