/*
Package config loads application configuration for the bestdoc services.

PURPOSE:
  One YAML file (optional - every field has a working default) plus a few
  environment overrides. The page geometry lives here so the server and
  the CLI render identically without sharing flags.

PRECEDENCE:
  defaults < config file < environment variables

ENVIRONMENT OVERRIDES:
  BESTDOC_PORT       HTTP port
  BESTDOC_DB         SQLite path, ":memory:" for in-memory
  BESTDOC_STATE_KEY  state document key in the store
*/
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

type Config struct {
	// Port is the HTTP listen port for the server.
	Port int `yaml:"port"`

	// DBPath is the SQLite database path backing the ledger store.
	// ":memory:" keeps everything in-process.
	DBPath string `yaml:"db_path"`

	// StateKey is the well-known key of the ledger state document.
	// Empty means the ledger default.
	StateKey string `yaml:"state_key"`

	// OutputDir is where the CLI writes generated documents.
	OutputDir string `yaml:"output_dir"`

	Page Page `yaml:"page"`
}

// Page is the render geometry. Rendering must reproduce a fixed format,
// so these defaults change only together with the document design.
type Page struct {
	BodyWidth  float64 `yaml:"body_width"`
	BodyHeight float64 `yaml:"body_height"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:      8080,
		DBPath:    "bestdoc.db",
		OutputDir: "./output",
		Page: Page{
			BodyWidth:  600,
			BodyHeight: 500,
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration file at path (skipped when path is empty or
// the file does not exist), applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No file is fine; defaults apply.
		case err != nil:
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %q: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BESTDOC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("BESTDOC_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("BESTDOC_STATE_KEY"); v != "" {
		cfg.StateKey = v
	}
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Page.BodyWidth <= 0 || c.Page.BodyHeight <= 0 {
		return fmt.Errorf("invalid page geometry %gx%g", c.Page.BodyWidth, c.Page.BodyHeight)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	return nil
}
