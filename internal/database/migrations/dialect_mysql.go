package migrations

import (
	"context"
	"fmt"
	"strings"
)

// mysqlDialect targets MySQL and MariaDB through go-sql-driver/mysql.
// MySQL DDL commits implicitly, so a failed step can leave earlier
// statements of that step applied.
type mysqlDialect struct{}

func (d *mysqlDialect) Family() Family { return FamilyMySQL }

func (d *mysqlDialect) QuoteIdent(name string) string { return quoteWith(name, "`") }

func (d *mysqlDialect) Placeholder(int) string { return "?" }

// IndexName returns the bare column names, matching what MySQL itself picks
func (d *mysqlDialect) IndexName(table string, columns []string) string {
	return canonicalIndexSuffix(columns)
}

func (d *mysqlDialect) ColumnTypeSQL(col ColumnSpec) string {
	switch col.Type {
	case ColumnTypeInteger:
		return "INT"
	case ColumnTypeBigInteger:
		return "BIGINT"
	case ColumnTypeSmallInteger:
		return "SMALLINT"
	case ColumnTypeBoolean:
		return "TINYINT(1)"
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

func (d *mysqlDialect) ColumnSQL(col ColumnSpec) string {
	parts := []string{d.QuoteIdent(col.Name), d.ColumnTypeSQL(col)}

	if col.CaseInsensitive && (col.Type == ColumnTypeString || col.IsText()) {
		parts = append(parts, "CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci")
	}
	if col.Nullable && !col.Primary {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	if col.AutoIncrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	// TEXT columns cannot carry a literal default
	if col.Default != nil && !col.IsText() {
		parts = append(parts, "DEFAULT "+defaultSQL(col.Default, "1", "0"))
	}
	if col.Primary {
		parts = append(parts, "PRIMARY KEY")
	}
	return strings.Join(parts, " ")
}

// CreateTableSQL declares foreign keys as table constraints, since MySQL
// parses and ignores inline REFERENCES clauses
func (d *mysqlDialect) CreateTableSQL(schema *TableSchema) string {
	var constraints []string
	for _, col := range schema.Columns {
		if col.References != nil {
			constraints = append(constraints, d.ForeignKeySQL(schema.Name, col))
		}
	}
	return createTableSQL(d, schema, constraints, " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
}

// ForeignKeySQL returns a named table constraint, fk_<table>_<column>
func (d *mysqlDialect) ForeignKeySQL(table string, col ColumnSpec) string {
	name := fmt.Sprintf("fk_%s_%s", table, col.Name)
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) %s", d.QuoteIdent(name), d.QuoteIdent(col.Name), foreignKeyTail(d, col.References))
}

// CreateIndexSQL uses prefix syntax for text columns
func (d *mysqlDialect) CreateIndexSQL(idx IndexSpec, columns []ColumnSpec) string {
	parts := make([]string, len(idx.Columns))
	for i, name := range idx.Columns {
		parts[i] = d.QuoteIdent(name)
		if i < len(columns) && columns[i].IsText() {
			parts[i] = fmt.Sprintf("%s(%d)", d.QuoteIdent(name), columns[i].indexLength())
		}
	}
	return fmt.Sprintf("%s %s ON %s (%s)", indexKeyword(idx.Unique), d.QuoteIdent(idx.Name), d.QuoteIdent(idx.Table), strings.Join(parts, ", "))
}

func (d *mysqlDialect) DropIndexSQL(idx IndexSpec) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", d.QuoteIdent(idx.Name), d.QuoteIdent(idx.Table))
}

func (d *mysqlDialect) AddColumnSQL(table string, col ColumnSpec) []string {
	stmts := []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdent(table), d.ColumnSQL(col))}
	if col.References != nil {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD %s", d.QuoteIdent(table), d.ForeignKeySQL(table, col)))
	}
	return stmts
}

func (d *mysqlDialect) DropColumnSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdent(table), d.QuoteIdent(column))
}

func (d *mysqlDialect) RenameColumnSQL(table, from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", d.QuoteIdent(table), d.QuoteIdent(from), d.QuoteIdent(to))
}

func (d *mysqlDialect) RenameTableSQL(from, to string) string {
	return fmt.Sprintf("RENAME TABLE %s TO %s", d.QuoteIdent(from), d.QuoteIdent(to))
}

func (d *mysqlDialect) RenameIndexSQL(table, from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME INDEX %s TO %s", d.QuoteIdent(table), d.QuoteIdent(from), d.QuoteIdent(to))
}

// ChangeColumnSQL renames and redefines a column in one statement
func (d *mysqlDialect) ChangeColumnSQL(table, from string, col ColumnSpec) string {
	return fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s", d.QuoteIdent(table), d.QuoteIdent(from), d.ColumnSQL(col))
}

func (d *mysqlDialect) TableExists(ctx context.Context, q Queryer, table string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	if err := q.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *mysqlDialect) Columns(ctx context.Context, q Queryer, table string) ([]LiveColumn, error) {
	query := `SELECT column_name, data_type, is_nullable, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`

	rows, err := q.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []LiveColumn
	for rows.Next() {
		var name, dataType, nullable, key string
		if err := rows.Scan(&name, &dataType, &nullable, &key); err != nil {
			return nil, err
		}
		columns = append(columns, LiveColumn{
			Name:     name,
			Type:     strings.ToLower(dataType),
			Nullable: nullable == "YES",
			Primary:  key == "PRI",
		})
	}
	return columns, rows.Err()
}

func (d *mysqlDialect) Indexes(ctx context.Context, q Queryer, table string) ([]LiveIndex, error) {
	query := `SELECT index_name, column_name, non_unique
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ? AND index_name <> 'PRIMARY'
		ORDER BY index_name, seq_in_index`

	rows, err := q.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes of %s: %w", table, err)
	}
	defer rows.Close()

	return collectIndexRows(rows, func(nonUnique int) bool { return nonUnique == 0 })
}

func (d *mysqlDialect) IsIndexExists(err error) bool  { return isMySQLIndexExists(err) }
func (d *mysqlDialect) IsIndexMissing(err error) bool { return isMySQLIndexMissing(err) }

func (d *mysqlDialect) GuardsDDL() bool { return false }

func isMySQLTextType(dataType string) bool {
	switch strings.ToLower(dataType) {
	case "text", "tinytext", "mediumtext", "longtext":
		return true
	}
	return false
}

// indexRows is the subset of *sql.Rows the index collectors need
type indexRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// collectIndexRows folds (index, column, flag) rows, ordered by index, into LiveIndex values
func collectIndexRows(rows indexRows, unique func(flag int) bool) ([]LiveIndex, error) {
	var indexes []LiveIndex
	for rows.Next() {
		var (
			name   string
			column string
			flag   int
		)
		if err := rows.Scan(&name, &column, &flag); err != nil {
			return nil, err
		}
		if n := len(indexes); n > 0 && indexes[n-1].Name == name {
			indexes[n-1].Columns = append(indexes[n-1].Columns, column)
			continue
		}
		indexes = append(indexes, LiveIndex{Name: name, Columns: []string{column}, Unique: unique(flag)})
	}
	return indexes, rows.Err()
}
