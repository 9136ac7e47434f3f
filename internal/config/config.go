package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/schaermu/fmtdiff/internal/formatter"
	"github.com/schaermu/fmtdiff/internal/source"
	"github.com/schaermu/fmtdiff/internal/style"
)

// Config represents the complete fmtdiff configuration
type Config struct {
	Formatter FormatterConfig `yaml:"formatter"`
	Diff      DiffConfig      `yaml:"diff"`
	Styles    StylesConfig    `yaml:"styles"`
}

// FormatterConfig configures the external formatter
type FormatterConfig struct {
	Binary       string `yaml:"binary"`
	DefaultStyle string `yaml:"default_style"`
}

// DiffConfig configures how diff input is interpreted
type DiffConfig struct {
	Strip      int      `yaml:"strip"`
	Extensions []string `yaml:"extensions"`
}

// StylesConfig configures the path to style override list
type StylesConfig struct {
	File string `yaml:"file"`
}

// Default returns the configuration used when no config file exists
func Default() *Config {
	return &Config{
		Formatter: FormatterConfig{
			Binary:       formatter.DefaultBinary,
			DefaultStyle: style.DefaultStyle,
		},
		Diff: DiffConfig{
			Strip:      1,
			Extensions: append([]string(nil), source.DefaultExtensions...),
		},
	}
}

// Load reads and parses the configuration file. Fields missing from the
// file keep their default values.
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Formatter.Binary = os.ExpandEnv(c.Formatter.Binary)
	c.Styles.File = os.ExpandEnv(c.Styles.File)
}

// applyDefaults fills in fields an explicit empty value would break
func (c *Config) applyDefaults() {
	if c.Formatter.Binary == "" {
		c.Formatter.Binary = formatter.DefaultBinary
	}
	if c.Formatter.DefaultStyle == "" {
		c.Formatter.DefaultStyle = style.DefaultStyle
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Formatter.Binary == "" {
		return fmt.Errorf("formatter.binary is required")
	}
	if c.Formatter.DefaultStyle == "" {
		return fmt.Errorf("formatter.default_style is required")
	}
	if c.Diff.Strip < 0 {
		return fmt.Errorf("diff.strip must not be negative: %d", c.Diff.Strip)
	}
	if len(c.Diff.Extensions) == 0 {
		return fmt.Errorf("diff.extensions must list at least one extension")
	}
	return nil
}

// StylesFile returns the override list path. Without an explicit setting
// it is the well-known file beside the running executable.
func (c *Config) StylesFile() (string, error) {
	if c.Styles.File != "" {
		return c.Styles.File, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), style.DefaultFileName), nil
}
