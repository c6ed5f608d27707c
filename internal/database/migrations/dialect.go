package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
)

// Family identifies a database engine
type Family string

const (
	FamilySQLite   Family = "sqlite"
	FamilyMySQL    Family = "mysql"
	FamilyPostgres Family = "postgres"
)

// Queryer runs read-only statements
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Conn runs statements on one database or transaction
type Conn interface {
	Queryer
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ConnectionProvider is a database the engine can open transactions on.
// Conn pins a single connection for per-connection settings.
type ConnectionProvider interface {
	Queryer
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Conn(ctx context.Context) (*sql.Conn, error)
}

// LiveColumn is a column as the database reports it
type LiveColumn struct {
	Name     string
	Type     string
	Nullable bool
	Primary  bool
	// Default is the default as raw SQL, where the engine reports it
	Default string
}

// LiveIndex is a secondary index as the database reports it
type LiveIndex struct {
	Name    string
	Columns []string
	Unique  bool
}

// Covers reports whether the index includes the column
func (li LiveIndex) Covers(column string) bool {
	for _, c := range li.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Dialect holds everything that differs between engines
type Dialect interface {
	Family() Family
	QuoteIdent(name string) string
	Placeholder(n int) string
	IndexName(table string, columns []string) string

	// DDL generation
	ColumnTypeSQL(col ColumnSpec) string
	ColumnSQL(col ColumnSpec) string
	CreateTableSQL(schema *TableSchema) string
	CreateIndexSQL(idx IndexSpec, columns []ColumnSpec) string
	DropIndexSQL(idx IndexSpec) string
	AddColumnSQL(table string, col ColumnSpec) []string
	DropColumnSQL(table, column string) string
	RenameColumnSQL(table, from, to string) string
	RenameTableSQL(from, to string) string
	// ForeignKeySQL renders col's reference: an inline REFERENCES clause, or
	// a named table constraint where the engine ignores inline ones
	ForeignKeySQL(table string, col ColumnSpec) string

	// Introspection
	TableExists(ctx context.Context, q Queryer, table string) (bool, error)
	Columns(ctx context.Context, q Queryer, table string) ([]LiveColumn, error)
	Indexes(ctx context.Context, q Queryer, table string) ([]LiveIndex, error)

	// Benign index errors
	IsIndexExists(err error) bool
	IsIndexMissing(err error) bool

	// GuardsDDL reports whether a failed statement aborts the enclosing
	// transaction, so tolerated failures need a savepoint
	GuardsDDL() bool
}

// NewDialect returns the dialect for a database/sql driver name
func NewDialect(driverName string) (Dialect, error) {
	switch strings.ToLower(driverName) {
	case "sqlite3", "sqlite":
		return &sqliteDialect{}, nil
	case "mysql":
		return &mysqlDialect{}, nil
	case "postgres", "postgresql", "pq":
		return &postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, driverName)
	}
}

// DetectDialect picks the dialect from the driver behind an open database
func DetectDialect(db *sql.DB) (Dialect, error) {
	switch drv := db.Driver().(type) {
	case *sqlite3.SQLiteDriver, *sqlite.Driver:
		return &sqliteDialect{}, nil
	case *mysql.MySQLDriver:
		return &mysqlDialect{}, nil
	case *pq.Driver:
		return &postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: driver %T", ErrUnsupportedDialect, drv)
	}
}

// resolveIndex fills the table and canonical name of an index
func resolveIndex(d Dialect, table string, idx IndexSpec) IndexSpec {
	if idx.Table == "" {
		idx.Table = table
	}
	if idx.Name == "" {
		idx.Name = d.IndexName(idx.Table, idx.Columns)
	}
	return idx
}

var (
	_ Dialect = (*sqliteDialect)(nil)
	_ Dialect = (*mysqlDialect)(nil)
	_ Dialect = (*postgresDialect)(nil)
)
