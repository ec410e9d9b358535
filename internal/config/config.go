// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

// Package config loads tooldeck configuration from a YAML file with
// command-line flag overrides.
package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/tooldeck/tooldeck/internal/xdg"
)

// Config is the resolved tooldeck configuration.
type Config struct {
	// Locations are the directories scanned for plugin manifests.
	Locations []string `koanf:"locations"`

	// Exclude are the reserved-name glob patterns skipped during scans.
	Exclude []string `koanf:"exclude"`

	Log LogConfig `koanf:"log"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Format string `koanf:"format"` // "json" or "text"
	Level  string `koanf:"level"`  // debug, info, warn, error
}

// defaultExclude mirrors the registry's reserved-name set.
var defaultExclude = []string{".*", "_*"}

// Load resolves configuration in precedence order: flag overrides beat
// the config file, which beats built-in defaults. An empty path means the
// default XDG config file, which may be absent; an explicit path must
// exist. Flags are matched to config keys by name, so the caller's flag
// set uses dotted names for nested keys ("log.format").
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = xdg.ConfigFile()
	}

	if _, err := os.Stat(path); err == nil {
		if loadErr := k.Load(file.Provider(path), yaml.Parser()); loadErr != nil {
			return nil, fmt.Errorf("load config %s: %w", path, loadErr)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("apply flag overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Locations) == 0 {
		c.Locations = []string{xdg.PluginsDir(), "extra"}
	}
	if len(c.Exclude) == 0 {
		c.Exclude = append([]string(nil), defaultExclude...)
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not a known level", c.Log.Level)
	}
	return nil
}
