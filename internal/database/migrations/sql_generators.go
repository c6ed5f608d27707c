package migrations

import (
	"fmt"
	"strings"
)

// Shared DDL fragments. Each dialect composes these with its own quoting and types.

func quoteWith(name, quote string) string {
	return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
}

func quoteList(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = d.QuoteIdent(name)
	}
	return strings.Join(quoted, ", ")
}

// canonicalIndexSuffix joins index columns the way all three naming schemes do
func canonicalIndexSuffix(columns []string) string {
	return strings.Join(columns, "_")
}

func indexKeyword(unique bool) string {
	if unique {
		return "CREATE UNIQUE INDEX"
	}
	return "CREATE INDEX"
}

// defaultSQL renders a column default. CURRENT_TIMESTAMP is emitted raw.
func defaultSQL(value interface{}, trueLit, falseLit string) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		if strings.EqualFold(v, "CURRENT_TIMESTAMP") {
			return "CURRENT_TIMESTAMP"
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return trueLit
		}
		return falseLit
	default:
		return fmt.Sprintf("%v", v)
	}
}

func foreignKeyTail(d Dialect, fk *ForeignKeySpec) string {
	sql := fmt.Sprintf("REFERENCES %s (%s)", d.QuoteIdent(fk.Table), d.QuoteIdent(fk.Column))
	if fk.OnDelete != "" {
		sql += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	return sql
}

func createTableSQL(d Dialect, schema *TableSchema, extra []string, suffix string) string {
	defs := make([]string, 0, len(schema.Columns)+len(extra))
	for _, col := range schema.Columns {
		defs = append(defs, d.ColumnSQL(col))
	}
	defs = append(defs, extra...)
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)%s", d.QuoteIdent(schema.Name), strings.Join(defs, ",\n  "), suffix)
}

// columnsFor resolves index columns against a schema. Columns the schema
// does not declare are treated as plain non-text columns.
func columnsFor(schema *TableSchema, names []string) []ColumnSpec {
	cols := make([]ColumnSpec, len(names))
	for i, name := range names {
		if col, ok := schema.Column(name); ok {
			cols[i] = col
		} else {
			cols[i] = ColumnSpec{Name: name, Type: ColumnTypeString}
		}
	}
	return cols
}
