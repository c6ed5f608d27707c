package migrations

import (
	"context"
	"fmt"
	"strings"
)

// postgresDialect targets PostgreSQL through lib/pq
type postgresDialect struct{}

func (d *postgresDialect) Family() Family { return FamilyPostgres }

func (d *postgresDialect) QuoteIdent(name string) string { return quoteWith(name, `"`) }

func (d *postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// IndexName returns <table>_<columns>_key, the name PostgreSQL gives unique constraints
func (d *postgresDialect) IndexName(table string, columns []string) string {
	return table + "_" + canonicalIndexSuffix(columns) + "_key"
}

func (d *postgresDialect) ColumnTypeSQL(col ColumnSpec) string {
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
		return "TIMESTAMP"
	case ColumnTypeString:
		return fmt.Sprintf("VARCHAR(%d)", col.length())
	case ColumnTypeText:
		return "TEXT"
	default:
		return strings.ToUpper(col.Type)
	}
}

func (d *postgresDialect) serialType(col ColumnSpec) string {
	if col.Type == ColumnTypeBigInteger {
		return "BIGSERIAL"
	}
	return "SERIAL"
}

// ColumnSQL ignores CaseInsensitive; PostgreSQL has no portable
// case-insensitive collation without extensions
func (d *postgresDialect) ColumnSQL(col ColumnSpec) string {
	parts := []string{d.QuoteIdent(col.Name)}
	if col.AutoIncrement {
		parts = append(parts, d.serialType(col))
	} else {
		parts = append(parts, d.ColumnTypeSQL(col))
	}

	if col.Primary {
		parts = append(parts, "PRIMARY KEY")
	} else if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil && !col.AutoIncrement {
		parts = append(parts, "DEFAULT "+defaultSQL(col.Default, "TRUE", "FALSE"))
	}
	if col.References != nil {
		parts = append(parts, d.ForeignKeySQL("", col))
	}
	return strings.Join(parts, " ")
}

func (d *postgresDialect) CreateTableSQL(schema *TableSchema) string {
	return createTableSQL(d, schema, nil, "")
}

// CreateIndexSQL produces a complete statement meant to be sent without bind
// arguments, so lib/pq uses the simple query protocol for it
func (d *postgresDialect) CreateIndexSQL(idx IndexSpec, columns []ColumnSpec) string {
	return fmt.Sprintf("%s %s ON %s (%s)", indexKeyword(idx.Unique), d.QuoteIdent(idx.Name), d.QuoteIdent(idx.Table), quoteList(d, idx.Columns))
}

func (d *postgresDialect) DropIndexSQL(idx IndexSpec) string {
	return "DROP INDEX " + d.QuoteIdent(idx.Name)
}

func (d *postgresDialect) AddColumnSQL(table string, col ColumnSpec) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdent(table), d.ColumnSQL(col))}
}

func (d *postgresDialect) DropColumnSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdent(table), d.QuoteIdent(column))
}

func (d *postgresDialect) RenameColumnSQL(table, from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", d.QuoteIdent(table), d.QuoteIdent(from), d.QuoteIdent(to))
}

func (d *postgresDialect) RenameTableSQL(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QuoteIdent(from), d.QuoteIdent(to))
}

// RenameIndexSQL ignores table; index names are unique per schema
func (d *postgresDialect) RenameIndexSQL(_, from, to string) string {
	return fmt.Sprintf("ALTER INDEX %s RENAME TO %s", d.QuoteIdent(from), d.QuoteIdent(to))
}

func (d *postgresDialect) ForeignKeySQL(_ string, col ColumnSpec) string {
	return foreignKeyTail(d, col.References)
}

// AlterTypeSQL converts the column in place with an explicit cast
func (d *postgresDialect) AlterTypeSQL(table string, col ColumnSpec) string {
	typ := d.ColumnTypeSQL(col)
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
		d.QuoteIdent(table), d.QuoteIdent(col.Name), typ, d.QuoteIdent(col.Name), typ)
}

// AlterNullSQL sets or drops NOT NULL
func (d *postgresDialect) AlterNullSQL(table string, col ColumnSpec) string {
	action := "SET NOT NULL"
	if col.Nullable {
		action = "DROP NOT NULL"
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s", d.QuoteIdent(table), d.QuoteIdent(col.Name), action)
}

func (d *postgresDialect) TableExists(ctx context.Context, q Queryer, table string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1"
	if err := q.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *postgresDialect) Columns(ctx context.Context, q Queryer, table string) ([]LiveColumn, error) {
	query := `SELECT c.column_name, c.data_type, c.is_nullable,
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage k
					ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name AND k.column_name = c.column_name
			)
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema() AND c.table_name = $1
		ORDER BY c.ordinal_position`

	rows, err := q.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []LiveColumn
	for rows.Next() {
		var (
			name, dataType, nullable string
			primary                  bool
		)
		if err := rows.Scan(&name, &dataType, &nullable, &primary); err != nil {
			return nil, err
		}
		columns = append(columns, LiveColumn{
			Name:     name,
			Type:     strings.ToLower(dataType),
			Nullable: nullable == "YES",
			Primary:  primary,
		})
	}
	return columns, rows.Err()
}

func (d *postgresDialect) Indexes(ctx context.Context, q Queryer, table string) ([]LiveIndex, error) {
	query := `SELECT i.relname, a.attname, CASE WHEN ix.indisunique THEN 1 ELSE 0 END
		FROM pg_class t
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_index ix ON ix.indrelid = t.oid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE t.relname = $1 AND n.nspname = current_schema() AND NOT ix.indisprimary
		ORDER BY i.relname, k.ord`

	rows, err := q.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read indexes of %s: %w", table, err)
	}
	defer rows.Close()

	return collectIndexRows(rows, func(flag int) bool { return flag == 1 })
}

func (d *postgresDialect) IsIndexExists(err error) bool  { return isPostgresIndexExists(err) }
func (d *postgresDialect) IsIndexMissing(err error) bool { return isPostgresIndexMissing(err) }

// GuardsDDL is true: any error aborts a PostgreSQL transaction
func (d *postgresDialect) GuardsDDL() bool { return true }
