package migrations

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Foreign key actions
const (
	ForeignKeyRestrict = "RESTRICT"
	ForeignKeyCascade  = "CASCADE"
	ForeignKeySetNull  = "SET NULL"
	ForeignKeyNoAction = "NO ACTION"
)

// Logical column types
const (
	ColumnTypeInteger      = "integer"
	ColumnTypeBigInteger   = "biginteger"
	ColumnTypeSmallInteger = "smallinteger"
	ColumnTypeBoolean      = "boolean"
	ColumnTypeDateTime     = "datetime"
	ColumnTypeString       = "string"
	ColumnTypeText         = "text"
)

const (
	// DefaultStringLength is used for string columns declared without a length
	DefaultStringLength = 255
	// DefaultIndexLength is the prefix length MySQL uses to index text columns
	DefaultIndexLength = 255
	// DefaultVersionTable is the reserved table holding version records
	DefaultVersionTable = "schema_versions"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ForeignKeySpec describes the target of a foreign key column
type ForeignKeySpec struct {
	Table    string
	Column   string
	OnDelete string
}

// ColumnSpec is the semantic description of a column
type ColumnSpec struct {
	Name            string
	Type            string
	Length          int
	IndexLength     int
	CaseInsensitive bool
	Nullable        bool
	Primary         bool
	AutoIncrement   bool
	Unique          bool
	Index           bool
	Default         interface{}
	References      *ForeignKeySpec
}

// IsText reports whether the column holds unbounded text
func (c ColumnSpec) IsText() bool {
	return c.Type == ColumnTypeText
}

func (c ColumnSpec) length() int {
	if c.Length > 0 {
		return c.Length
	}
	return DefaultStringLength
}

func (c ColumnSpec) indexLength() int {
	if c.IndexLength > 0 {
		return c.IndexLength
	}
	return DefaultIndexLength
}

// IndexSpec describes an index. An empty Name means the dialect's canonical name.
type IndexSpec struct {
	Table   string
	Columns []string
	Unique  bool
	Name    string
}

// UpgradeFunc moves a live table from version v-1 to v
type UpgradeFunc func(ctx context.Context, a *Alterer) error

// TableSchema is the declared, current structure of one logical table
type TableSchema struct {
	Name     string
	Version  int
	Columns  []ColumnSpec
	Indexes  []IndexSpec
	Upgrades map[int]UpgradeFunc
}

// Column looks up a declared column by name
func (ts *TableSchema) Column(name string) (ColumnSpec, bool) {
	for _, col := range ts.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnSpec{}, false
}

// AllIndexes returns the column-level indexes followed by the table-level ones
func (ts *TableSchema) AllIndexes() []IndexSpec {
	var indexes []IndexSpec
	for _, col := range ts.Columns {
		if col.Index && !col.Primary {
			indexes = append(indexes, IndexSpec{Table: ts.Name, Columns: []string{col.Name}, Unique: col.Unique})
		}
	}
	for _, idx := range ts.Indexes {
		if idx.Table == "" {
			idx.Table = ts.Name
		}
		indexes = append(indexes, idx)
	}
	return indexes
}

// Dependencies returns the tables referenced by foreign keys, excluding the table itself
func (ts *TableSchema) Dependencies() []string {
	var deps []string
	seen := make(map[string]bool)
	for _, col := range ts.Columns {
		if col.References == nil {
			continue
		}
		target := col.References.Table
		if target == ts.Name || seen[target] {
			continue
		}
		seen[target] = true
		deps = append(deps, target)
	}
	return deps
}

// Validate checks the declaration before anything touches the database
func (ts *TableSchema) Validate() error {
	if !identifierPattern.MatchString(ts.Name) {
		return fmt.Errorf("%w: invalid table name %q", ErrInvalidTable, ts.Name)
	}
	if ts.Version < 1 {
		return fmt.Errorf("%w: table %s declares version %d, versions start at 1", ErrInvalidTable, ts.Name, ts.Version)
	}
	if len(ts.Columns) == 0 {
		return fmt.Errorf("%w: table %s has no columns", ErrInvalidTable, ts.Name)
	}

	seen := make(map[string]bool, len(ts.Columns))
	primaries := 0
	for _, col := range ts.Columns {
		if !identifierPattern.MatchString(col.Name) {
			return fmt.Errorf("%w: table %s has invalid column name %q", ErrInvalidTable, ts.Name, col.Name)
		}
		if seen[col.Name] {
			return fmt.Errorf("%w: table %s declares column %s twice", ErrInvalidTable, ts.Name, col.Name)
		}
		seen[col.Name] = true

		if !isKnownType(col.Type) {
			return fmt.Errorf("%w: column %s.%s has unknown type %q", ErrInvalidTable, ts.Name, col.Name, col.Type)
		}
		if col.Unique && !col.Index && !col.Primary {
			return fmt.Errorf("%w: column %s.%s is unique but not indexed", ErrStructuralConstraint, ts.Name, col.Name)
		}
		if col.Primary {
			primaries++
		}
		if col.References != nil && (col.References.Table == "" || col.References.Column == "") {
			return fmt.Errorf("%w: column %s.%s has an incomplete foreign key", ErrInvalidTable, ts.Name, col.Name)
		}
	}
	if primaries > 1 {
		return fmt.Errorf("%w: table %s declares %d primary key columns", ErrInvalidTable, ts.Name, primaries)
	}

	for _, idx := range ts.Indexes {
		if len(idx.Columns) == 0 {
			return fmt.Errorf("%w: table %s has an index without columns", ErrInvalidTable, ts.Name)
		}
		for _, name := range idx.Columns {
			if !seen[name] {
				return fmt.Errorf("%w: index on %s references column %s", ErrUnknownColumn, ts.Name, name)
			}
		}
	}

	for v := 2; v <= ts.Version; v++ {
		if ts.Upgrades[v] == nil {
			return fmt.Errorf("%w: table %s has no step to version %d", ErrMissingUpgrade, ts.Name, v)
		}
	}
	for v := range ts.Upgrades {
		if v < 2 || v > ts.Version {
			return fmt.Errorf("%w: table %s registers a step for version %d outside 2..%d", ErrInvalidTable, ts.Name, v, ts.Version)
		}
	}
	return nil
}

func isKnownType(t string) bool {
	switch t {
	case ColumnTypeInteger, ColumnTypeBigInteger, ColumnTypeSmallInteger,
		ColumnTypeBoolean, ColumnTypeDateTime, ColumnTypeString, ColumnTypeText:
		return true
	}
	return false
}

// typeFamily groups logical types that SQLite stores identically
func typeFamily(t string) string {
	switch t {
	case ColumnTypeString, ColumnTypeText:
		return "string"
	case ColumnTypeInteger, ColumnTypeBigInteger, ColumnTypeSmallInteger:
		return "integer"
	}
	return t
}

// TableRegistry is an immutable set of table declarations
type TableRegistry struct {
	tables []*TableSchema
	byName map[string]*TableSchema
}

// NewTableRegistry validates the tables and fixes their declaration order
func NewTableRegistry(tables ...*TableSchema) (*TableRegistry, error) {
	reg := &TableRegistry{
		tables: make([]*TableSchema, 0, len(tables)),
		byName: make(map[string]*TableSchema, len(tables)),
	}

	for _, table := range tables {
		if table == nil {
			return nil, fmt.Errorf("%w: nil table", ErrInvalidTable)
		}
		if err := table.Validate(); err != nil {
			return nil, err
		}
		if _, exists := reg.byName[table.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTable, table.Name)
		}
		reg.tables = append(reg.tables, table)
		reg.byName[table.Name] = table
	}

	if _, err := ResolveOrder(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Tables returns the tables in declaration order
func (r *TableRegistry) Tables() []*TableSchema {
	out := make([]*TableSchema, len(r.tables))
	copy(out, r.tables)
	return out
}

// Lookup finds a table by name
func (r *TableRegistry) Lookup(name string) (*TableSchema, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Len returns the number of tables
func (r *TableRegistry) Len() int {
	return len(r.tables)
}

// VersionRecord is one row of the version registry
type VersionRecord struct {
	Table   string
	Version int
}

// PlanAction is what the executor will do with a table
type PlanAction string

const (
	ActionNone      PlanAction = "none"
	ActionCreate    PlanAction = "create"
	ActionAdopt     PlanAction = "adopt"
	ActionUpgrade   PlanAction = "upgrade"
	ActionDowngrade PlanAction = "downgrade"
)

// TablePlan is the work pending for one table
type TablePlan struct {
	Table   string
	Current int
	Target  int
	Action  PlanAction
}

// Pending lists the version increments still to replay
func (tp TablePlan) Pending() []int {
	if tp.Action == ActionCreate || tp.Current >= tp.Target {
		return nil
	}
	steps := make([]int, 0, tp.Target-tp.Current)
	for v := tp.Current + 1; v <= tp.Target; v++ {
		steps = append(steps, v)
	}
	return steps
}

func (tp TablePlan) String() string {
	switch tp.Action {
	case ActionCreate:
		return fmt.Sprintf("%s: create at v%d", tp.Table, tp.Target)
	case ActionNone:
		return fmt.Sprintf("%s: up to date at v%d", tp.Table, tp.Current)
	case ActionDowngrade:
		return fmt.Sprintf("%s: database at v%d is newer than v%d", tp.Table, tp.Current, tp.Target)
	}
	steps := make([]string, 0, tp.Target-tp.Current)
	for _, v := range tp.Pending() {
		steps = append(steps, fmt.Sprintf("v%d", v))
	}
	return fmt.Sprintf("%s: %s v%d, apply %s", tp.Table, tp.Action, tp.Current, strings.Join(steps, ", "))
}

// MigrationPlan is the ordered work for one engine invocation
type MigrationPlan struct {
	Tables []TablePlan
}

// Stale returns the tables that are not at their target version
func (mp *MigrationPlan) Stale() []string {
	var names []string
	for _, tp := range mp.Tables {
		if tp.Action != ActionNone {
			names = append(names, tp.Table)
		}
	}
	return names
}
