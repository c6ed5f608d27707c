package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// sqliteDialect targets SQLite through either mattn/go-sqlite3 or modernc.org/sqlite
type sqliteDialect struct{}

func (d *sqliteDialect) Family() Family { return FamilySQLite }

func (d *sqliteDialect) QuoteIdent(name string) string { return quoteWith(name, `"`) }

func (d *sqliteDialect) Placeholder(int) string { return "?" }

// IndexName returns ix_<table>_<columns>
func (d *sqliteDialect) IndexName(table string, columns []string) string {
	return "ix_" + table + "_" + canonicalIndexSuffix(columns)
}

func (d *sqliteDialect) ColumnTypeSQL(col ColumnSpec) string {
	switch col.Type {
	case ColumnTypeInteger:
		return "INTEGER"
	case ColumnTypeBigInteger:
		return "BIGINT"
	case ColumnTypeSmallInteger:
		return "SMALLINT"
	case ColumnTypeBoolean:
		return "BOOLEAN"
	case ColumnTypeDateTime:
		return "DATETIME"
	case ColumnTypeString:
		return fmt.Sprintf("VARCHAR(%d)", col.length())
	case ColumnTypeText:
		return "TEXT"
	default:
		return strings.ToUpper(col.Type)
	}
}

func (d *sqliteDialect) ColumnSQL(col ColumnSpec) string {
	parts := []string{d.QuoteIdent(col.Name)}

	// Only INTEGER PRIMARY KEY aliases the rowid
	if col.Primary && col.AutoIncrement {
		parts = append(parts, "INTEGER PRIMARY KEY AUTOINCREMENT")
	} else {
		parts = append(parts, d.ColumnTypeSQL(col))
		if col.Primary {
			parts = append(parts, "PRIMARY KEY")
		}
	}

	if !col.Nullable && !col.Primary {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		parts = append(parts, "DEFAULT "+defaultSQL(col.Default, "1", "0"))
	}
	if col.CaseInsensitive {
		parts = append(parts, "COLLATE NOCASE")
	}
	if col.References != nil {
		parts = append(parts, d.ForeignKeySQL("", col))
	}
	return strings.Join(parts, " ")
}

func (d *sqliteDialect) CreateTableSQL(schema *TableSchema) string {
	return createTableSQL(d, schema, nil, "")
}

func (d *sqliteDialect) CreateIndexSQL(idx IndexSpec, columns []ColumnSpec) string {
	return fmt.Sprintf("%s %s ON %s (%s)", indexKeyword(idx.Unique), d.QuoteIdent(idx.Name), d.QuoteIdent(idx.Table), quoteList(d, idx.Columns))
}

func (d *sqliteDialect) DropIndexSQL(idx IndexSpec) string {
	return "DROP INDEX " + d.QuoteIdent(idx.Name)
}

func (d *sqliteDialect) AddColumnSQL(table string, col ColumnSpec) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdent(table), d.ColumnSQL(col))}
}

func (d *sqliteDialect) DropColumnSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdent(table), d.QuoteIdent(column))
}

func (d *sqliteDialect) RenameColumnSQL(table, from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", d.QuoteIdent(table), d.QuoteIdent(from), d.QuoteIdent(to))
}

func (d *sqliteDialect) RenameTableSQL(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QuoteIdent(from), d.QuoteIdent(to))
}

func (d *sqliteDialect) ForeignKeySQL(_ string, col ColumnSpec) string {
	return foreignKeyTail(d, col.References)
}

func (d *sqliteDialect) TableExists(ctx context.Context, q Queryer, table string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *sqliteDialect) Columns(ctx context.Context, q Queryer, table string) ([]LiveColumn, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", d.QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []LiveColumn
	for rows.Next() {
		var (
			cid      int
			name     string
			colType  string
			notNull  int
			defValue interface{}
			pk       int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defValue, &pk); err != nil {
			return nil, err
		}
		col := LiveColumn{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0 && pk == 0,
			Primary:  pk > 0,
		}
		switch v := defValue.(type) {
		case string:
			col.Default = v
		case []byte:
			col.Default = string(v)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (d *sqliteDialect) Indexes(ctx context.Context, q Queryer, table string) ([]LiveIndex, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", d.QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes of %s: %w", table, err)
	}

	var indexes []LiveIndex
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}
		// Constraint-backed indexes (origin "pk" or "u") cannot be dropped
		if origin != "c" {
			continue
		}
		indexes = append(indexes, LiveIndex{Name: name, Unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range indexes {
		cols, err := d.indexColumns(ctx, q, indexes[i].Name)
		if err != nil {
			return nil, err
		}
		indexes[i].Columns = cols
	}
	return indexes, nil
}

func (d *sqliteDialect) indexColumns(ctx context.Context, q Queryer, index string) ([]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", d.QuoteIdent(index)))
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", index, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			seqno int
			cid   int
			name  string
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

func (d *sqliteDialect) IsIndexExists(err error) bool  { return isSQLiteIndexExists(err) }
func (d *sqliteDialect) IsIndexMissing(err error) bool { return isSQLiteIndexMissing(err) }

func (d *sqliteDialect) GuardsDDL() bool { return false }

// sqliteForeignKeysOff disables enforcement on conn if it is on and returns
// a func that puts it back. The pragma is ignored inside a transaction.
func sqliteForeignKeysOff(ctx context.Context, conn *sql.Conn) (func() error, error) {
	var enabled int
	if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return nil, fmt.Errorf("failed to read foreign key setting: %w", err)
	}
	if enabled == 0 {
		return func() error { return nil }, nil
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return nil, fmt.Errorf("failed to disable foreign keys: %w", err)
	}
	return func() error {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to restore foreign keys: %w", err)
		}
		return nil
	}, nil
}

// sqliteForeignKeyCheck fails if any row references a missing parent
func sqliteForeignKeyCheck(ctx context.Context, q Queryer) error {
	rows, err := q.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("failed to check foreign keys: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var (
			table  string
			rowid  sql.NullInt64
			parent string
			fkid   int
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return err
		}
		return fmt.Errorf("foreign key violation: %s row %d references missing %s", table, rowid.Int64, parent)
	}
	return rows.Err()
}

// sqliteTypeFamily maps a declared SQLite type to the logical family it stores as
func sqliteTypeFamily(declared string) string {
	upper := strings.ToUpper(declared)
	switch {
	case strings.Contains(upper, "INT"):
		return "integer"
	case strings.Contains(upper, "CHAR"), strings.Contains(upper, "TEXT"), strings.Contains(upper, "CLOB"):
		return "string"
	case strings.HasPrefix(upper, "BOOL"):
		return ColumnTypeBoolean
	case strings.HasPrefix(upper, "DATETIME"), strings.HasPrefix(upper, "TIMESTAMP"):
		return ColumnTypeDateTime
	}
	return strings.ToLower(declared)
}
