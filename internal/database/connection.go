package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/onyx-go/schemaver/internal/database/migrations"
)

// DB represents a database connection with driver information
type DB struct {
	*sql.DB
	driver string
}

// NewDB opens a connection with the pooling preset for the driver
func NewDB(ctx context.Context, driver, dsn string) (*DB, error) {
	return NewDBWithConfig(ctx, ConfigFor(driver, dsn))
}

// NewDBWithConfig creates a new database connection with the given pooling configuration
func NewDBWithConfig(ctx context.Context, config Config) (*DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", config.Driver, err)
	}

	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", config.Driver, err)
	}

	db := &DB{DB: sqlDB, driver: config.Driver}
	if db.IsSQLite() {
		// Foreign keys are off by default and the pragma is per connection;
		// the SQLite preset keeps a single connection
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	return db, nil
}

// Driver returns the database driver name
func (db *DB) Driver() string {
	return db.driver
}

// IsSQLite reports whether the connection uses either SQLite driver
func (db *DB) IsSQLite() bool {
	return db.driver == "sqlite3" || db.driver == "sqlite"
}

// Dialect returns the migration dialect for the connection
func (db *DB) Dialect() (migrations.Dialect, error) {
	return migrations.DetectDialect(db.DB)
}

// Ensure DB can drive the migration engine
var _ migrations.ConnectionProvider = (*DB)(nil)
