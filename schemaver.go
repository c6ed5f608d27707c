// Package schemaver keeps relational tables in step with their declared
// schemas on SQLite, MySQL and PostgreSQL.
package schemaver

import (
	"context"

	"github.com/onyx-go/schemaver/internal/database"
	"github.com/onyx-go/schemaver/internal/database/migrations"
)

// Engine brings registered tables up to their declared versions
type Engine = migrations.Engine

// TableSchema is the declared shape and version of one table
type TableSchema = migrations.TableSchema

// TableBuilder declares columns, indexes and upgrade steps
type TableBuilder = migrations.TableBuilder

// TableRegistry is an ordered, validated set of tables
type TableRegistry = migrations.TableRegistry

// Alterer performs column and index changes inside an upgrade step
type Alterer = migrations.Alterer

// AlterOption tunes AlterColumn
type AlterOption = migrations.AlterOption

// UpgradeFunc moves a table from version N-1 to N
type UpgradeFunc = migrations.UpgradeFunc

type (
	ColumnSpec      = migrations.ColumnSpec
	IndexSpec       = migrations.IndexSpec
	ForeignKeySpec  = migrations.ForeignKeySpec
	MigrationConfig = migrations.MigrationConfig
	MigrationPlan   = migrations.MigrationPlan
	TablePlan       = migrations.TablePlan
	VersionRecord   = migrations.VersionRecord
	Stats           = migrations.Stats
	Dialect         = migrations.Dialect
	MigrationError  = migrations.MigrationError
)

// DB is a pooled connection that remembers its driver
type DB = database.DB

var (
	ErrUnsupportedDowngrade = migrations.ErrUnsupportedDowngrade
	ErrStructuralConstraint = migrations.ErrStructuralConstraint
	ErrDependencyCycle      = migrations.ErrDependencyCycle
	ErrMissingUpgrade       = migrations.ErrMissingUpgrade
	ErrUnsupportedDialect   = migrations.ErrUnsupportedDialect
	ErrInvalidTable         = migrations.ErrInvalidTable
	ErrDuplicateTable       = migrations.ErrDuplicateTable
	ErrUnknownColumn        = migrations.ErrUnknownColumn
)

// DefineTable declares a table at version
func DefineTable(name string, version int, build func(t *TableBuilder)) *TableSchema {
	return migrations.DefineTable(name, version, build)
}

// NewTableRegistry validates tables and rejects duplicates and cycles
func NewTableRegistry(tables ...*TableSchema) (*TableRegistry, error) {
	return migrations.NewTableRegistry(tables...)
}

// DefaultMigrationConfig returns the engine defaults
func DefaultMigrationConfig() *MigrationConfig {
	return migrations.DefaultMigrationConfig()
}

// NewDialect returns the dialect for a database/sql driver name
func NewDialect(driverName string) (Dialect, error) {
	return migrations.NewDialect(driverName)
}

// FromColumn names the column an AlterColumn call copies data from
func FromColumn(old string) AlterOption {
	return migrations.FromColumn(old)
}

// ForceRebuild makes AlterColumn rebuild SQLite tables even when the type family matches
func ForceRebuild() AlterOption {
	return migrations.ForceRebuild()
}

// Open connects with the pooling preset for driver
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	return database.NewDB(ctx, driver, dsn)
}

// New opens a connection and builds an engine for its dialect. A nil config
// uses the defaults.
func New(ctx context.Context, driver, dsn string, config *MigrationConfig) (*DB, *Engine, error) {
	db, err := Open(ctx, driver, dsn)
	if err != nil {
		return nil, nil, err
	}

	dialect, err := db.Dialect()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	engine, err := migrations.NewEngine(db, dialect, config)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, engine, nil
}
