package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/onyx-go/schemaver/internal/logging"
)

var sqliteDrivers = []string{"sqlite3", "sqlite"}

// setupTestDB opens a file-backed SQLite database with foreign keys enabled
func setupTestDB(t *testing.T, driver string) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open(driver, dbPath)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	return db
}

// forEachSQLiteDriver runs fn against both SQLite drivers
func forEachSQLiteDriver(t *testing.T, fn func(t *testing.T, db *sql.DB)) {
	for _, driver := range sqliteDrivers {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			fn(t, setupTestDB(t, driver))
		})
	}
}

func newTestEngine(t *testing.T, db *sql.DB) (*Engine, *logging.MemoryDriver) {
	t.Helper()

	dialect, err := DetectDialect(db)
	if err != nil {
		t.Fatalf("Failed to detect dialect: %v", err)
	}

	logs := logging.NewMemoryDriver()
	config := DefaultMigrationConfig()
	config.Logger = logging.NewLogger(logs, logging.DebugLevel)

	engine, err := NewEngine(db, dialect, config)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine, logs
}

func mustRegistry(t *testing.T, tables ...*TableSchema) *TableRegistry {
	t.Helper()

	reg, err := NewTableRegistry(tables...)
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	return reg
}

func mustUpgrade(t *testing.T, engine *Engine, reg *TableRegistry) {
	t.Helper()

	if err := engine.UpgradeAll(context.Background(), reg); err != nil {
		t.Fatalf("UpgradeAll failed: %v", err)
	}
}

func versionOf(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var version int
	err := db.QueryRow("SELECT version FROM schema_versions WHERE table_name = ?", table).Scan(&version)
	if err != nil {
		t.Fatalf("Failed to read version of %s: %v", table, err)
	}
	return version
}

func liveColumnNames(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	cols, err := (&sqliteDialect{}).Columns(context.Background(), db, table)
	if err != nil {
		t.Fatalf("Failed to read columns of %s: %v", table, err)
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func liveIndexMap(t *testing.T, db *sql.DB, table string) map[string]LiveIndex {
	t.Helper()

	indexes, err := (&sqliteDialect{}).Indexes(context.Background(), db, table)
	if err != nil {
		t.Fatalf("Failed to read indexes of %s: %v", table, err)
	}
	out := make(map[string]LiveIndex, len(indexes))
	for _, idx := range indexes {
		out[idx.Name] = idx
	}
	return out
}

func sortedKeys(m map[string]LiveIndex) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
