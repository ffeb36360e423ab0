package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML or TOML file. ${VAR} references are
// expanded from the environment before parsing.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	// Expand environment variables in the file content
	expanded := os.ExpandEnv(string(data))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize fills derived defaults and rejects unknown values.
func (c *AppConfig) normalize() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == "" {
		// No URL means nothing to connect to.
		if c.Database.URL == "" {
			c.Database.Driver = DriverMemory
		} else {
			c.Database.Driver = DriverPostgres
		}
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Driver != DriverMemory && c.Database.URL == "" {
		return fmt.Errorf("database.url is required for driver %s", c.Database.Driver)
	}

	c.Retry = c.Retry.WithDefaults()
	if c.Points.PerStoryPoint <= 0 {
		c.Points.PerStoryPoint = 10
	}
	return nil
}
