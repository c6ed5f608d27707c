package migrations

import (
	"context"
	"fmt"
	"strings"
)

// columnChange is what one step changes in a SQLite rebuild. Columns it
// does not name keep their current definition.
type columnChange struct {
	renames map[string]string
	drops   map[string]bool
	// specs are columns the step adds or redefines
	specs []ColumnSpec
}

type columnMapping struct {
	from string
	to   string
}

// columnMap pairs every live column that survives change with its name
// afterwards. Only an explicit drop removes a column.
func columnMap(live []LiveColumn, change columnChange) ([]columnMapping, error) {
	targets := make(map[string]bool, len(change.renames))
	for _, to := range change.renames {
		targets[to] = true
	}

	var mapping []columnMapping
	for _, col := range live {
		if change.drops[col.Name] {
			continue
		}
		to, renamed := change.renames[col.Name]
		if !renamed {
			if targets[col.Name] {
				return nil, fmt.Errorf("cannot rename onto existing column %q", col.Name)
			}
			to = col.Name
		}
		mapping = append(mapping, columnMapping{from: col.Name, to: to})
	}
	return mapping, nil
}

// rebuildTarget returns the table a rebuild creates. Declared columns come
// first, in declared order, when they survive the change or the step adds
// them; declared columns a later step adds are left out. Live columns the
// schema does not declare follow with their live definition, so their data
// is still there for a later rename or until a step drops them.
func rebuildTarget(d Dialect, schema *TableSchema, live []LiveColumn, mapping []columnMapping, change columnChange) (*TableSchema, []string) {
	explicit := make(map[string]ColumnSpec, len(change.specs))
	for _, col := range change.specs {
		if isKnownType(col.Type) {
			explicit[col.Name] = col
		}
	}
	present := make(map[string]bool, len(mapping))
	for _, m := range mapping {
		present[m.to] = true
	}

	target := &TableSchema{Name: schema.Name, Version: schema.Version}
	placed := make(map[string]bool)
	for _, col := range schema.Columns {
		if spec, ok := explicit[col.Name]; ok {
			col = spec
		} else if !present[col.Name] {
			continue
		}
		target.Columns = append(target.Columns, col)
		placed[col.Name] = true
	}
	for _, col := range change.specs {
		if _, ok := explicit[col.Name]; ok && !placed[col.Name] {
			target.Columns = append(target.Columns, col)
			placed[col.Name] = true
		}
	}

	liveByName := make(map[string]LiveColumn, len(live))
	for _, col := range live {
		liveByName[col.Name] = col
	}
	var carried []string
	for _, m := range mapping {
		if !placed[m.to] {
			carried = append(carried, liveColumnSQL(d, m.to, liveByName[m.from]))
		}
	}
	return target, carried
}

// liveColumnSQL redeclares a column from its introspected definition
func liveColumnSQL(d Dialect, name string, col LiveColumn) string {
	parts := []string{d.QuoteIdent(name)}
	if col.Type != "" {
		parts = append(parts, col.Type)
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != "" {
		parts = append(parts, "DEFAULT "+col.Default)
	}
	return strings.Join(parts, " ")
}

// rebuild recreates a SQLite table in the shape it has after change and
// copies the rows across
func (a *Alterer) rebuild(ctx context.Context, change columnChange) error {
	d := a.r.dialect
	table := a.schema.Name
	old := table + "_old"

	live, err := d.Columns(ctx, a.r.conn, table)
	if err != nil {
		return NewMigrationError(table, "rebuild", err)
	}
	liveIndexes, err := d.Indexes(ctx, a.r.conn, table)
	if err != nil {
		return NewMigrationError(table, "rebuild", err)
	}
	mapping, err := columnMap(live, change)
	if err != nil {
		return NewMigrationError(table, "rebuild", err)
	}
	target, carried := rebuildTarget(d, a.schema, live, mapping, change)

	a.r.logger.DebugContext(ctx, "Rebuilding table", map[string]interface{}{
		"table":   table,
		"columns": len(mapping),
		"carried": len(carried),
	})

	var legacy int
	if err := a.r.conn.QueryRowContext(ctx, "PRAGMA legacy_alter_table").Scan(&legacy); err != nil {
		return NewMigrationError(table, "rebuild", fmt.Errorf("failed to read legacy_alter_table: %w", err))
	}
	// Keep foreign keys in other tables pointing at the original name
	if legacy == 0 {
		if err := a.r.exec(ctx, table, "PRAGMA legacy_alter_table = ON"); err != nil {
			return err
		}
	}
	if err := a.r.exec(ctx, table, d.RenameTableSQL(table, old)); err != nil {
		return err
	}

	for _, idx := range liveIndexes {
		drop := d.DropIndexSQL(IndexSpec{Table: old, Name: idx.Name})
		if err := a.r.execTolerant(ctx, table, drop, d.IsIndexMissing); err != nil {
			return err
		}
	}

	if err := a.r.exec(ctx, table, createTableSQL(d, target, carried, "")); err != nil {
		return err
	}

	if len(mapping) > 0 {
		from := make([]string, len(mapping))
		to := make([]string, len(mapping))
		for i, m := range mapping {
			from[i] = d.QuoteIdent(m.from)
			to[i] = d.QuoteIdent(m.to)
		}
		copyRows := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			d.QuoteIdent(table), strings.Join(to, ", "), strings.Join(from, ", "), d.QuoteIdent(old))
		if err := a.r.exec(ctx, table, copyRows); err != nil {
			return err
		}
	}

	if err := a.r.exec(ctx, table, "DROP TABLE "+d.QuoteIdent(old)); err != nil {
		return err
	}
	if legacy == 0 {
		if err := a.r.exec(ctx, table, "PRAGMA legacy_alter_table = OFF"); err != nil {
			return err
		}
	}

	columns := make(map[string]bool, len(mapping)+len(target.Columns))
	for _, col := range target.Columns {
		columns[col.Name] = true
	}
	for _, m := range mapping {
		columns[m.to] = true
	}
	return a.restoreIndexes(ctx, liveIndexes, change, columns)
}

// restoreIndexes creates the declared indexes whose columns exist, then the
// live indexes the declarations do not cover, following renamed columns.
// Canonically named live indexes take the canonical name of their new columns.
func (a *Alterer) restoreIndexes(ctx context.Context, liveIndexes []LiveIndex, change columnChange, columns map[string]bool) error {
	d := a.r.dialect
	table := a.schema.Name

	exists := func(names []string) bool {
		for _, name := range names {
			if !columns[name] {
				return false
			}
		}
		return true
	}

	declared := a.schema.AllIndexes()
	for _, col := range change.specs {
		if _, ok := a.schema.Column(col.Name); !ok && col.Index {
			declared = append(declared, IndexSpec{Table: table, Columns: []string{col.Name}, Unique: col.Unique})
		}
	}

	created := make(map[string]bool)
	for _, idx := range declared {
		if !exists(idx.Columns) {
			continue
		}
		idx = resolveIndex(d, table, idx)
		created[strings.Join(idx.Columns, ",")] = true
		created[idx.Name] = true
		// A newer declared schema may already have created some of these
		stmt := d.CreateIndexSQL(idx, columnsFor(a.schema, idx.Columns))
		if err := a.r.execTolerant(ctx, table, stmt, d.IsIndexExists); err != nil {
			return err
		}
	}

	for _, idx := range liveIndexes {
		cols := renameColumns(idx.Columns, change.renames)
		if !exists(cols) || created[strings.Join(cols, ",")] {
			continue
		}
		name := idx.Name
		if name == d.IndexName(table, idx.Columns) {
			name = d.IndexName(table, cols)
		}
		if created[name] {
			continue
		}
		spec := IndexSpec{Table: table, Columns: cols, Unique: idx.Unique, Name: name}
		stmt := d.CreateIndexSQL(spec, columnsFor(a.schema, cols))
		if err := a.r.execTolerant(ctx, table, stmt, d.IsIndexExists); err != nil {
			return err
		}
	}
	return nil
}

func renameColumns(columns []string, renames map[string]string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = col
		if to, ok := renames[col]; ok {
			out[i] = to
		}
	}
	return out
}
