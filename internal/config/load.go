package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// CLIOverrides holds values from command-line flags. Empty fields mean the
// flag was not given.
type CLIOverrides struct {
	ConfigPath string
	Site       string
	LogLevel   string
}

// Resolved is a fully layered configuration plus the selections made while
// resolving it.
type Resolved struct {
	*Config
	Path string // config file consulted; may not exist
	Site string // selected site name, empty when none was chosen
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> .env / environment -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	setIf(&cfgPath, env.ConfigPath)
	setIf(&cfgPath, cli.ConfigPath)

	// 2. File layer (defaults when no file exists)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Environment layer
	env.apply(cfg)

	// 4. CLI layer
	setIf(&cfg.LogLevel, cli.LogLevel)

	site := env.Site
	setIf(&site, cli.Site)

	// 5. Revalidate: overrides may have introduced bad values.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	if site != "" {
		if _, err := cfg.Site(site); err != nil {
			return nil, err
		}
	}

	return &Resolved{Config: cfg, Path: cfgPath, Site: site}, nil
}
