// Package config holds the settings of the safecalc command.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/mohak72/safecalc"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of the safecalc command.
type Config struct {
	// Prec is the precision of calculations in bits.
	Prec uint `yaml:"prec"`
	// Format is the fmt verb used to print results.
	Format string `yaml:"format"`
	// MaxDepth bounds expression nesting. Zero or less disables the bound.
	MaxDepth int `yaml:"max_depth"`
	// Consts are extra named constants available to expressions.
	Consts map[string]float64 `yaml:"consts"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Prec:     256,
		Format:   "%g",
		MaxDepth: 200,
	}
}

// Load reads the configuration from a YAML file. Fields missing from the
// file keep their default values, and a missing file gives the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Prec == 0 {
		return fmt.Errorf("prec must be positive")
	}
	if !strings.Contains(c.Format, "%") {
		return fmt.Errorf("format %q has no verb", c.Format)
	}
	for name, v := range c.Consts {
		if !safecalc.ValidName(name) {
			return fmt.Errorf("constant name %q cannot be used in expressions", name)
		}
		if math.IsNaN(v) {
			return fmt.Errorf("constant %s is NaN", name)
		}
	}
	return nil
}
