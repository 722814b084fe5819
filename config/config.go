package config

import (
	"fmt"
	"os"
	"regexp"

	"feedbridge/content"

	"github.com/BurntSushi/toml"
)

// TomlLocaleSplit configures which subjects post a second-language copy below a divider
type TomlLocaleSplit struct {
	Subjects []string `toml:"subjects"`
	Divider  string   `toml:"divider,omitempty"`
	Notice   *string  `toml:"notice,omitempty"`
}

// TomlMedia selects how attachment media is linked from feed items
type TomlMedia struct {
	// Mode is "proxy" (link through our media endpoints) or "graph" (resolve direct urls while building)
	Mode      string `toml:"mode"`
	BatchSize int    `toml:"batch_size,omitempty"`
}

type TomlFacebook struct {
	MaxPages int `toml:"max_pages"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	LocaleSplit TomlLocaleSplit `toml:"locale_split"`
	Media       TomlMedia       `toml:"media"`
	Facebook    TomlFacebook    `toml:"facebook"`
}

// Default is used when no config file is given
func Default() *TomlConfig {
	return &TomlConfig{
		LocaleSplit: TomlLocaleSplit{Subjects: append([]string(nil), content.DefaultDualLocaleSubjects...)},
		Media:       TomlMedia{Mode: "proxy"},
		Facebook:    TomlFacebook{MaxPages: 1},
	}
}

// LoadConfig reads a TOML file over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (*TomlConfig, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if config.Media.Mode != "proxy" && config.Media.Mode != "graph" {
		return nil, fmt.Errorf("invalid media mode %q", config.Media.Mode)
	}

	return config, nil
}

// Split builds the locale split policy
func (c *TomlConfig) Split() (content.LocaleSplit, error) {
	split := content.NewLocaleSplit(c.LocaleSplit.Subjects)

	if c.LocaleSplit.Divider != "" {
		divider, err := regexp.Compile(c.LocaleSplit.Divider)
		if err != nil {
			return content.LocaleSplit{}, fmt.Errorf("invalid divider pattern: %w", err)
		}
		split.Divider = divider
	}
	if c.LocaleSplit.Notice != nil {
		split.Notice = *c.LocaleSplit.Notice
	}

	return split, nil
}
