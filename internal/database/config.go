package database

import (
	"fmt"
	"time"
)

// Config holds database connection configuration
type Config struct {
	Driver          string        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

// ConfigFor returns the pooling preset for a driver
func ConfigFor(driver, dsn string) Config {
	switch driver {
	case "mysql":
		return MySQLConfig(dsn)
	case "postgres", "postgresql":
		return PostgreSQLConfig(dsn)
	case "sqlite3", "sqlite":
		cfg := SQLiteConfig(dsn)
		cfg.Driver = driver
		return cfg
	default:
		cfg := DefaultConfig()
		cfg.Driver, cfg.DSN = driver, dsn
		return cfg
	}
}

// DefaultConfig returns defaults for an in-memory SQLite database
func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite3",
		DSN:             ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 15 * time.Minute,
	}
}

// MySQLConfig returns configuration for MySQL. Migrations run one
// statement at a time, so the pool stays small.
func MySQLConfig(dsn string) Config {
	return Config{
		Driver:          "mysql",
		DSN:             dsn,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 60 * time.Minute,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// PostgreSQLConfig returns configuration for PostgreSQL
func PostgreSQLConfig(dsn string) Config {
	return Config{
		Driver:          "postgres",
		DSN:             dsn,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 45 * time.Minute,
		ConnMaxIdleTime: 20 * time.Minute,
	}
}

// SQLiteConfig returns configuration for SQLite
func SQLiteConfig(dsn string) Config {
	return Config{
		Driver:          "sqlite3",
		DSN:             dsn,
		MaxOpenConns:    1, // SQLite works best with single connection
		MaxIdleConns:    1,
		ConnMaxLifetime: 24 * time.Hour,
		ConnMaxIdleTime: 2 * time.Hour,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("database driver cannot be empty")
	}
	if c.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("max open connections must be at least 1, got %d", c.MaxOpenConns)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max idle connections (%d) cannot exceed max open connections (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}
