// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CampusGate Contributors

// Package config loads server configuration from an optional YAML file
// overlaid with command-line flags. Flags set explicitly win over the
// file; file values win over flag defaults.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the serve command configuration.
type Config struct {
	DatabaseURL        string        `koanf:"database-url"`
	HTTPAddr           string        `koanf:"http-addr"`
	SessionIdleTimeout time.Duration `koanf:"session-idle-timeout"`
	LogFormat          string        `koanf:"log-format"`
	Debug              bool          `koanf:"debug"`
}

// Default values for the serve command.
const (
	DefaultHTTPAddr           = ":8080"
	DefaultSessionIdleTimeout = 30 * time.Minute
	DefaultLogFormat          = "json"
)

// Load builds a Config from the YAML file at path (skipped when path is
// empty) and the given flag set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	// Explicitly set flags override the file; unchanged flags only fill
	// keys the file did not provide.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}
	return cfg, nil
}

// Validate checks that the configuration is complete and coherent.
func (cfg *Config) Validate() error {
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database-url is required")
	}
	if cfg.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http-addr is required")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("log-format must be 'json' or 'text', got %q", cfg.LogFormat)
	}
	if cfg.SessionIdleTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session-idle-timeout must be positive")
	}
	return nil
}
