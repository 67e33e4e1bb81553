package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/y-ui/yuictl/internal/brand"
)

// LoadFile loads a config file (HCL or JSON, chosen by extension).
// A missing file yields the defaults when allowMissing is set.
func LoadFile(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(path, data)
}

// Load decodes configuration bytes. The filename selects the syntax:
// names ending in .json are parsed as JSON, everything else as HCL.
func Load(filename string, data []byte) (*Config, error) {
	if !strings.HasSuffix(filename, ".json") && !strings.HasSuffix(filename, ".hcl") {
		filename += ".hcl"
	}

	var cfg Config
	if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
		return nil, fmt.Errorf("config parse error: %w", err)
	}

	if cfg.SchemaVersion != "" && cfg.SchemaVersion != CurrentSchemaVersion {
		return nil, fmt.Errorf("unsupported schema_version %q (expected %s)", cfg.SchemaVersion, CurrentSchemaVersion)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables. getenv is usually
// os.Getenv; tests pass a map lookup.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	prefix := brand.ConfigEnvPrefix + "_"

	if v := getenv(prefix + "SERVER"); v != "" {
		c.Server = v
	}
	if v := getenv(prefix + "STATE"); v != "" {
		c.StatePath = v
	}
	if v := getenv(prefix + "TIMEOUT"); v != "" {
		c.Timeout = v
	}
	if v := getenv(prefix + "LOG_LEVEL"); v != "" {
		if c.Logging == nil {
			c.Logging = &LoggingConfig{}
		}
		c.Logging.Level = v
	}
	if v := getenv(prefix + "INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sINSECURE: %w", prefix, err)
		}
		c.Insecure = b
	}
	if v := getenv(prefix + "LANG"); v != "" {
		c.Language = v
	}
	return nil
}
