// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package config loads the emark TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"nickandperla.net/emark/internal/markup"
	"nickandperla.net/emark/internal/token"
)

// EnvVar names the environment variable holding a config path.
const EnvVar = "EMARK_CONFIG"

// Config holds the complete configuration.
type Config struct {
	Parser    ParserConfig    `toml:"parser"`
	Store     StoreConfig     `toml:"store"`
	Log       LogConfig       `toml:"log"`
	Libraries LibrariesConfig `toml:"libraries"`
	Watch     WatchConfig     `toml:"watch"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-"`
}

// ParserConfig holds the parse limits.
type ParserConfig struct {
	ReparseDepthLimit int    `toml:"reparse_depth_limit"`
	ArgumentSeparator string `toml:"argument_separator"`
	NoStdlib          bool   `toml:"no_stdlib"`
}

// StoreConfig locates the library database. An empty path keeps
// libraries in memory.
type StoreConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// LibrariesConfig lists stored libraries parsed into every document.
type LibrariesConfig struct {
	Preload []string `toml:"preload"`
}

type WatchConfig struct {
	Debounce Duration `toml:"debounce"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML file.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	cfg.Path = path
	cfg.applyDefaults()
	cfg.Store.Path = os.ExpandEnv(cfg.Store.Path)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Locate finds the configuration file: explicit path, $EMARK_CONFIG,
// ./emark.toml, then ~/.config/emark/emark.toml. It returns "" when none
// exists.
func Locate(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvVar); env != "" {
		return env
	}
	candidates := []string{"./emark.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "emark", "emark.toml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadDefault loads the located configuration, or the defaults when no
// file exists.
func LoadDefault(explicit string) (*Config, error) {
	path := Locate(explicit)
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Parser.ReparseDepthLimit == 0 {
		c.Parser.ReparseDepthLimit = markup.DefaultReparseDepthLimit
	}
	if c.Parser.ArgumentSeparator == "" {
		c.Parser.ArgumentSeparator = token.DefaultSeparator
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Watch.Debounce.Duration == 0 {
		c.Watch.Debounce.Duration = 100 * time.Millisecond
	}
}

// Validate rejects values the parser cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Parser.ReparseDepthLimit < 0 {
		errs = append(errs, fmt.Errorf("parser.reparse_depth_limit must be positive, got %d", c.Parser.ReparseDepthLimit))
	}
	if c.Watch.Debounce.Duration < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative"))
	}
	return errors.Join(errs...)
}
