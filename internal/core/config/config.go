package config

import (
	"time"

	"github.com/vietddude/pointboard/internal/core/points"
	"github.com/vietddude/pointboard/internal/core/retry"
	redisclient "github.com/vietddude/pointboard/internal/infra/redis"
	"github.com/vietddude/pointboard/internal/infra/storage/postgres"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"   toml:"server"`
	Database DatabaseConfig     `yaml:"database" toml:"database"`
	Redis    redisclient.Config `yaml:"redis"    toml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"  toml:"logging"`
	Retry    retry.Config       `yaml:"retry"    toml:"retry"`
	Points   points.Config      `yaml:"points"   toml:"points"`

	Reconciliation ReconciliationConfig `yaml:"reconciliation" toml:"reconciliation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// DatabaseConfig selects the storage backend. For sqlite, URL is the file path.
type DatabaseConfig struct {
	Driver          string `yaml:"driver" toml:"driver"` // postgres, sqlite, memory
	postgres.Config `yaml:",inline"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"  toml:"level"`  // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, text
}

// ReconciliationConfig controls how long resolved entries are kept.
// Zero disables pruning.
type ReconciliationConfig struct {
	Retention time.Duration `yaml:"retention" toml:"retention"`
}

// Default returns the configuration used for omitted fields.
func Default() AppConfig {
	return AppConfig{
		Server:  ServerConfig{Port: 8080},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Retry:   retry.DefaultConfig(),
		Points:  points.DefaultConfig(),

		Reconciliation: ReconciliationConfig{Retention: 30 * 24 * time.Hour},
	}
}
