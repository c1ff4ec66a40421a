// Package config loads drillstore settings from YAML or CUE files and the
// environment.
//
// Precedence, lowest first: built-in defaults, the config file, DRILLSTORE_*
// environment variables, command-line flags (applied by the caller).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/drillstore/internal/logging"
)

// DefaultDatabase is the store path used when none is configured.
const DefaultDatabase = "drillstore.db"

// Environment variables read by Load.
const (
	EnvDatabase     = "DRILLSTORE_DATABASE"
	EnvLogLevel     = "DRILLSTORE_LOG_LEVEL"
	EnvLogFormat    = "DRILLSTORE_LOG_FORMAT"
	EnvCompensation = "DRILLSTORE_COMPENSATION"
)

// Config holds every setting of the store and its CLI.
type Config struct {
	// Database is the SQLite file path.
	Database string `json:"database" yaml:"database"`

	// Compensation is "transaction" (default) or "replay".
	Compensation string `json:"compensation" yaml:"compensation"`

	// Tables lists application tables that get history triggers on init.
	Tables []string `json:"tables,omitempty" yaml:"tables,omitempty"`

	// Bootstrap holds DDL statements run by init before triggers are
	// installed. Statements must be idempotent (CREATE TABLE IF NOT EXISTS).
	Bootstrap []string `json:"bootstrap,omitempty" yaml:"bootstrap,omitempty"`

	Log LogConfig `json:"log" yaml:"log"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (if non-empty), applies environment overrides and defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
		parsed, err := Parse(data, filepath.Ext(path))
		if err != nil {
			return nil, fmt.Errorf("config load %s: %w", path, err)
		}
		cfg = parsed
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Parse decodes a config document. ext selects the format: ".cue" for CUE,
// anything else is read as YAML (which also accepts JSON).
func Parse(data []byte, ext string) (*Config, error) {
	switch strings.ToLower(ext) {
	case ".cue":
		return parseCUE(data)
	default:
		return parseYAML(data)
	}
}

func parseYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

func parseCUE(data []byte) (*Config, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename("config.cue"))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile cue: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate cue: %w", err)
	}

	cfg := &Config{}
	if err := value.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode cue: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides fields from DRILLSTORE_* variables that are set.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v := getenv(EnvCompensation); v != "" {
		c.Compensation = v
	}
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Compensation == "" {
		c.Compensation = "transaction"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Database == "" {
		errs = append(errs, "database is required")
	}
	switch c.Compensation {
	case "transaction", "replay":
	default:
		errs = append(errs, fmt.Sprintf("compensation %q must be \"transaction\" or \"replay\"", c.Compensation))
	}
	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	if !logging.ValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	seen := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		switch {
		case strings.TrimSpace(t) == "":
			errs = append(errs, "tables: empty table name")
		case seen[t]:
			errs = append(errs, fmt.Sprintf("tables: %q listed twice", t))
		}
		seen[t] = true
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
