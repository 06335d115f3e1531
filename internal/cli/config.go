package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds defaults read from a YAML or TOML file. Flags given on the command
// line win over the file.
//
//	table: events
//	format: json
//	debug: false
type Config struct {
	Table  string `yaml:"table" toml:"table"`
	Format string `yaml:"format" toml:"format"`
	Debug  bool   `yaml:"debug" toml:"debug"`
}

// LoadConfig reads a config file. Files ending in .toml are TOML, anything
// else is YAML. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if strings.HasSuffix(path, ".toml") {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// Apply copies config values into opts for every flag not set explicitly.
func (c *Config) Apply(cmd *cobra.Command, opts *RootOptions) {
	flags := cmd.Flags()
	if c.Format != "" && !flags.Changed("format") {
		opts.Format = c.Format
	}
	if c.Debug && !flags.Changed("debug") {
		opts.Debug = true
	}
	if c.Table != "" {
		opts.Table = c.Table
	}
}
