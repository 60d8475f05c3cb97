/*
Package config loads the runtime configuration from the environment.

PURPOSE:
  Centralizes every tunable the server binary reads: HTTP port, database
  path, logging level, tank capacity, and the audit schedule. Values come
  from environment variables, with an optional .env file for local runs.

VARIABLES:
  DEPOT_PORT           HTTP listen port           (default "8080")
  DEPOT_DB             SQLite database path        (default "./depot.db")
  DEPOT_LOG_LEVEL      zap level: debug/info/warn  (default "info")
  DEPOT_TANK_CAPACITY  bulk tank capacity, liters  (default "1000")
  DEPOT_AUDIT_SCHEDULE cron spec for the nightly
                       invariant audit             (default "0 3 * * *")
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full configuration surface of the server binary.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Log    LogConfig
	Depot  DepotConfig
	Audit  AuditConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// DBConfig holds SQLite settings.
type DBConfig struct {
	Path string
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string
}

// DepotConfig holds physical depot parameters.
type DepotConfig struct {
	TankCapacityLiters float64
}

// AuditConfig holds scheduler settings for the invariant audit.
type AuditConfig struct {
	CronSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from
		// the environment directly.
		_ = godotenv.Load()
	}

	capacity, err := strconv.ParseFloat(getenvWithDefault("DEPOT_TANK_CAPACITY", "1000"), 64)
	if err != nil {
		return nil, fmt.Errorf("DEPOT_TANK_CAPACITY must be numeric: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("DEPOT_PORT", "8080"),
		},
		DB: DBConfig{
			Path: getenvWithDefault("DEPOT_DB", "./depot.db"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("DEPOT_LOG_LEVEL", "info"),
		},
		Depot: DepotConfig{
			TankCapacityLiters: capacity,
		},
		Audit: AuditConfig{
			CronSchedule: getenvWithDefault("DEPOT_AUDIT_SCHEDULE", "0 3 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("DEPOT_PORT must be provided")
	}

	if c.DB.Path == "" {
		return errors.New("DEPOT_DB must be provided")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("DEPOT_LOG_LEVEL %q is not one of debug/info/warn/error", c.Log.Level)
	}

	if c.Depot.TankCapacityLiters <= 0 {
		return errors.New("DEPOT_TANK_CAPACITY must be positive")
	}

	if c.Audit.CronSchedule == "" {
		return errors.New("DEPOT_AUDIT_SCHEDULE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
