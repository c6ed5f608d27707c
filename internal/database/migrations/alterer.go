package migrations

import (
	"context"
	"fmt"
)

// Alterer exposes the column and index primitives to upgrade steps. It is
// bound to one open transaction and to the table's declared schema.
type Alterer struct {
	r      *runner
	schema *TableSchema
}

func newAlterer(r *runner, schema *TableSchema) *Alterer {
	return &Alterer{r: r, schema: schema}
}

// AlterOption tunes AlterColumn
type AlterOption func(*alterOptions)

type alterOptions struct {
	from  string
	force bool
}

// FromColumn renames the column from old as part of the alteration
func FromColumn(old string) AlterOption {
	return func(o *alterOptions) {
		o.from = old
	}
}

// ForceRebuild makes SQLite rebuild even when the change is a no-op there
func ForceRebuild() AlterOption {
	return func(o *alterOptions) {
		o.force = true
	}
}

// Table returns the declared schema of the table being upgraded
func (a *Alterer) Table() *TableSchema {
	return a.schema
}

// Dialect returns the dialect of the connection
func (a *Alterer) Dialect() Dialect {
	return a.r.dialect
}

// Column returns the declared column, or a spec with only a name if the
// table does not declare it
func (a *Alterer) Column(name string) ColumnSpec {
	if col, ok := a.schema.Column(name); ok {
		return col
	}
	return ColumnSpec{Name: name}
}

// ColumnIndex returns the single-column index the declared column implies
func (a *Alterer) ColumnIndex(name string) IndexSpec {
	col := a.Column(name)
	return IndexSpec{Table: a.schema.Name, Columns: []string{name}, Unique: col.Unique}
}

// Exec runs a statement inside the step, for data fix-ups
func (a *Alterer) Exec(ctx context.Context, query string, args ...interface{}) error {
	return a.r.exec(ctx, a.schema.Name, query, args...)
}

// AddColumn appends a column to the live table
func (a *Alterer) AddColumn(ctx context.Context, col ColumnSpec) error {
	if err := a.checkColumn(col); err != nil {
		return err
	}
	if a.r.dialect.Family() == FamilySQLite {
		return a.rebuild(ctx, columnChange{specs: []ColumnSpec{col}})
	}

	for _, stmt := range a.r.dialect.AddColumnSQL(a.schema.Name, col) {
		if err := a.r.exec(ctx, a.schema.Name, stmt); err != nil {
			return err
		}
	}
	if col.Index {
		return a.AddIndex(ctx, IndexSpec{Table: a.schema.Name, Columns: []string{col.Name}, Unique: col.Unique})
	}
	return nil
}

// DropColumn removes a column from the live table
func (a *Alterer) DropColumn(ctx context.Context, name string) error {
	if a.r.dialect.Family() == FamilySQLite {
		return a.rebuild(ctx, columnChange{drops: map[string]bool{name: true}})
	}
	return a.r.exec(ctx, a.schema.Name, a.r.dialect.DropColumnSQL(a.schema.Name, name))
}

// RenameColumn renames oldName to col.Name
func (a *Alterer) RenameColumn(ctx context.Context, col ColumnSpec, oldName string) error {
	switch a.r.dialect.Family() {
	case FamilySQLite:
		return a.rebuild(ctx, columnChange{
			renames: map[string]string{oldName: col.Name},
			specs:   []ColumnSpec{col},
		})
	case FamilyMySQL:
		return a.AlterColumn(ctx, col, FromColumn(oldName))
	default:
		return a.renameColumn(ctx, oldName, col.Name)
	}
}

// indexRenamer is implemented by dialects that can rename an index in place
type indexRenamer interface {
	RenameIndexSQL(table, from, to string) string
}

// renameColumn renames a column in place. Indexes carrying the canonical
// name of their columns are renamed to follow it.
func (a *Alterer) renameColumn(ctx context.Context, from, to string) error {
	d := a.r.dialect
	indexes, err := d.Indexes(ctx, a.r.conn, a.schema.Name)
	if err != nil {
		return NewMigrationError(a.schema.Name, "introspect", err)
	}
	if err := a.r.exec(ctx, a.schema.Name, d.RenameColumnSQL(a.schema.Name, from, to)); err != nil {
		return err
	}
	return a.renameCanonicalIndexes(ctx, indexes, from, to)
}

func (a *Alterer) renameCanonicalIndexes(ctx context.Context, indexes []LiveIndex, from, to string) error {
	renamer, ok := a.r.dialect.(indexRenamer)
	if !ok {
		return nil
	}
	for _, idx := range indexes {
		name, renamed := a.followRename(idx, from, to)
		if !renamed {
			continue
		}
		if err := a.r.exec(ctx, a.schema.Name, renamer.RenameIndexSQL(a.schema.Name, idx.Name, name)); err != nil {
			return err
		}
	}
	return nil
}

// followRename returns the name idx takes once from is renamed to to. Only
// canonically named indexes covering from change name.
func (a *Alterer) followRename(idx LiveIndex, from, to string) (string, bool) {
	d := a.r.dialect
	if from == to || !idx.Covers(from) || idx.Name != d.IndexName(a.schema.Name, idx.Columns) {
		return idx.Name, false
	}
	name := d.IndexName(a.schema.Name, renameColumns(idx.Columns, map[string]string{from: to}))
	return name, name != idx.Name
}

// AlterColumn changes the type or nullability of a column, optionally renaming it
func (a *Alterer) AlterColumn(ctx context.Context, col ColumnSpec, opts ...AlterOption) error {
	if err := a.checkColumn(col); err != nil {
		return err
	}

	o := alterOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	from := col.Name
	if o.from != "" {
		from = o.from
	}

	live, err := a.liveColumn(ctx, from)
	if err != nil {
		return err
	}

	switch d := a.r.dialect.(type) {
	case *sqliteDialect:
		return a.alterSQLite(ctx, col, live, from, o.force)
	case *mysqlDialect:
		return a.alterMySQL(ctx, d, col, live, from)
	case *postgresDialect:
		return a.alterPostgres(ctx, d, col, live, from)
	default:
		return NewMigrationError(a.schema.Name, "alter column", fmt.Errorf("%w: %s", ErrUnsupportedDialect, d.Family()))
	}
}

// SQLite does not enforce declared types, so changes within a type family
// are left alone unless forced
func (a *Alterer) alterSQLite(ctx context.Context, col ColumnSpec, live LiveColumn, from string, force bool) error {
	if !force && from == col.Name &&
		sqliteTypeFamily(live.Type) == typeFamily(col.Type) &&
		live.Nullable == col.Nullable {
		a.r.logger.DebugContext(ctx, "Skipping compatible SQLite column change", map[string]interface{}{
			"table":  a.schema.Name,
			"column": col.Name,
		})
		return nil
	}

	change := columnChange{specs: []ColumnSpec{col}}
	if from != col.Name {
		change.renames = map[string]string{from: col.Name}
	}
	return a.rebuild(ctx, change)
}

// MySQL cannot change an indexed TEXT column, so indexes covering it are
// dropped first and recreated with the same uniqueness
func (a *Alterer) alterMySQL(ctx context.Context, d *mysqlDialect, col ColumnSpec, live LiveColumn, from string) error {
	text := isMySQLTextType(live.Type) || col.IsText()
	var indexes, affected []LiveIndex
	if text || from != col.Name {
		var err error
		indexes, err = d.Indexes(ctx, a.r.conn, a.schema.Name)
		if err != nil {
			return NewMigrationError(a.schema.Name, "introspect", err)
		}
	}
	if text {
		for _, idx := range indexes {
			if !idx.Covers(from) {
				continue
			}
			affected = append(affected, idx)
			drop := d.DropIndexSQL(IndexSpec{Table: a.schema.Name, Name: idx.Name})
			if err := a.r.execTolerant(ctx, a.schema.Name, drop, d.IsIndexMissing); err != nil {
				return err
			}
		}
	}

	if err := a.r.exec(ctx, a.schema.Name, d.ChangeColumnSQL(a.schema.Name, from, col)); err != nil {
		return err
	}
	if !text {
		return a.renameCanonicalIndexes(ctx, indexes, from, col.Name)
	}

	for _, idx := range affected {
		columns := make([]string, len(idx.Columns))
		specs := make([]ColumnSpec, len(idx.Columns))
		for i, name := range idx.Columns {
			if name == from {
				columns[i], specs[i] = col.Name, col
				continue
			}
			columns[i], specs[i] = name, a.Column(name)
		}
		name, _ := a.followRename(idx, from, col.Name)
		spec := IndexSpec{Table: a.schema.Name, Columns: columns, Unique: idx.Unique, Name: name}
		if err := a.r.execTolerant(ctx, a.schema.Name, d.CreateIndexSQL(spec, specs), d.IsIndexExists); err != nil {
			return err
		}
	}
	return nil
}

func (a *Alterer) alterPostgres(ctx context.Context, d *postgresDialect, col ColumnSpec, live LiveColumn, from string) error {
	if from != col.Name {
		if err := a.renameColumn(ctx, from, col.Name); err != nil {
			return err
		}
	}
	if err := a.r.exec(ctx, a.schema.Name, d.AlterTypeSQL(a.schema.Name, col)); err != nil {
		return err
	}
	if live.Nullable != col.Nullable {
		return a.r.exec(ctx, a.schema.Name, d.AlterNullSQL(a.schema.Name, col))
	}
	return nil
}

// AddIndex creates an index, tolerating one that already exists
func (a *Alterer) AddIndex(ctx context.Context, idx IndexSpec) error {
	idx = resolveIndex(a.r.dialect, a.schema.Name, idx)
	stmt := a.r.dialect.CreateIndexSQL(idx, columnsFor(a.schema, idx.Columns))
	return a.r.execTolerant(ctx, a.schema.Name, stmt, a.r.dialect.IsIndexExists)
}

// DropIndex drops an index, tolerating one that is already gone
func (a *Alterer) DropIndex(ctx context.Context, idx IndexSpec) error {
	idx = resolveIndex(a.r.dialect, a.schema.Name, idx)
	return a.r.execTolerant(ctx, a.schema.Name, a.r.dialect.DropIndexSQL(idx), a.r.dialect.IsIndexMissing)
}

func (a *Alterer) checkColumn(col ColumnSpec) error {
	if col.Name == "" || !isKnownType(col.Type) {
		return NewMigrationError(a.schema.Name, "check column", fmt.Errorf("%w: %q", ErrUnknownColumn, col.Name))
	}
	return nil
}

func (a *Alterer) liveColumn(ctx context.Context, name string) (LiveColumn, error) {
	columns, err := a.r.dialect.Columns(ctx, a.r.conn, a.schema.Name)
	if err != nil {
		return LiveColumn{}, NewMigrationError(a.schema.Name, "introspect", err)
	}
	for _, c := range columns {
		if c.Name == name {
			return c, nil
		}
	}
	return LiveColumn{}, NewMigrationError(a.schema.Name, "alter column", fmt.Errorf("%w: %s", ErrUnknownColumn, name))
}
