package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/y-ui/yuictl/internal/brand"
	"github.com/y-ui/yuictl/internal/validation"
)

// CurrentSchemaVersion defines the current schema version of the configuration.
const CurrentSchemaVersion = "1.0"

// DefaultTimeout matches the panel web UI request timeout.
const DefaultTimeout = 30 * time.Second

// Config is the top-level structure for the console configuration.
type Config struct {
	SchemaVersion string `hcl:"schema_version,optional" json:"schema_version,omitempty"`

	// Server is the panel origin, e.g. https://panel.example.com:2053.
	Server   string `hcl:"server,optional" json:"server,omitempty"`
	BasePath string `hcl:"base_path,optional" json:"base_path,omitempty"`
	Timeout  string `hcl:"timeout,optional" json:"timeout,omitempty"`

	// TLS
	Insecure    bool   `hcl:"insecure,optional" json:"insecure,omitempty"`
	Fingerprint string `hcl:"fingerprint,optional" json:"fingerprint,omitempty"` // SHA-256 hex of the leaf certificate

	// StatePath is the sqlite file holding the persisted session token.
	// ":memory:" keeps the session for the lifetime of the process only.
	StatePath string `hcl:"state_path,optional" json:"state_path,omitempty"`
	Language  string `hcl:"language,optional" json:"language,omitempty"`

	Logging *LoggingConfig `hcl:"logging,block" json:"logging,omitempty"`
	Console *ConsoleConfig `hcl:"console,block" json:"console,omitempty"`
}

// LoggingConfig configures diagnostic output.
type LoggingConfig struct {
	Level string `hcl:"level,optional" json:"level,omitempty"`
	JSON  bool   `hcl:"json,optional" json:"json,omitempty"`
}

// ConsoleConfig configures the interactive console.
type ConsoleConfig struct {
	Landing string `hcl:"landing,optional" json:"landing,omitempty"`
	Refresh string `hcl:"refresh,optional" json:"refresh,omitempty"`
}

// Default returns a configuration with every optional field populated.
func Default() *Config {
	return &Config{
		SchemaVersion: CurrentSchemaVersion,
		Server:        "http://127.0.0.1:2053",
		BasePath:      brand.APIBasePath,
		Timeout:       DefaultTimeout.String(),
		StatePath:     brand.GetStatePath(),
		Logging:       &LoggingConfig{Level: "warn"},
		Console:       &ConsoleConfig{Landing: "/dashboard", Refresh: "10s"},
	}
}

// applyDefaults fills fields left empty by the file.
func (c *Config) applyDefaults() {
	def := Default()
	if c.SchemaVersion == "" {
		c.SchemaVersion = def.SchemaVersion
	}
	if c.Server == "" {
		c.Server = def.Server
	}
	if c.BasePath == "" {
		c.BasePath = def.BasePath
	}
	if c.Timeout == "" {
		c.Timeout = def.Timeout
	}
	if c.StatePath == "" {
		c.StatePath = def.StatePath
	}
	if c.Logging == nil {
		c.Logging = def.Logging
	} else if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Console == nil {
		c.Console = def.Console
	} else {
		if c.Console.Landing == "" {
			c.Console.Landing = def.Console.Landing
		}
		if c.Console.Refresh == "" {
			c.Console.Refresh = def.Console.Refresh
		}
	}
}

// TimeoutDuration returns the parsed request timeout.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// RefreshInterval returns the parsed console refresh interval, or zero when
// auto-refresh is disabled.
func (c *Config) RefreshInterval() time.Duration {
	if c.Console == nil || c.Console.Refresh == "" || c.Console.Refresh == "off" {
		return 0
	}
	d, err := time.ParseDuration(c.Console.Refresh)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := validation.ValidateServerURL(c.Server); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}

	if err := validation.ValidateBasePath(c.BasePath); err != nil {
		errs = append(errs, fmt.Errorf("base_path: %w", err))
	}

	if d, err := time.ParseDuration(c.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("timeout: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("timeout: must be positive, got %s", d))
	}

	if c.Fingerprint != "" {
		if err := validation.ValidateFingerprint(c.Fingerprint); err != nil {
			errs = append(errs, fmt.Errorf("fingerprint: %w", err))
		}
	}

	if c.Console != nil && c.Console.Refresh != "" && c.Console.Refresh != "off" {
		if _, err := time.ParseDuration(c.Console.Refresh); err != nil {
			errs = append(errs, fmt.Errorf("console.refresh: %w", err))
		}
	}

	return errors.Join(errs...)
}
