package migrations

// ColumnBuilder refines a column declared on a TableBuilder
type ColumnBuilder struct {
	spec ColumnSpec
}

// NewColumn starts a standalone column, for steps that need a spec the
// declared schema no longer carries
func NewColumn(name, columnType string) *ColumnBuilder {
	return &ColumnBuilder{spec: ColumnSpec{Name: name, Type: columnType}}
}

// Spec returns the built column
func (cb *ColumnBuilder) Spec() ColumnSpec {
	return cb.spec
}

// Basic properties

// Length sets the bound of a string column
func (cb *ColumnBuilder) Length(length int) *ColumnBuilder {
	cb.spec.Length = length
	return cb
}

// IndexLength sets the prefix length used to index a text column on MySQL
func (cb *ColumnBuilder) IndexLength(length int) *ColumnBuilder {
	cb.spec.IndexLength = length
	return cb
}

// CaseInsensitive requests a case-insensitive collation where the engine has one
func (cb *ColumnBuilder) CaseInsensitive() *ColumnBuilder {
	cb.spec.CaseInsensitive = true
	return cb
}

// Constraints

// Nullable marks the column as nullable
func (cb *ColumnBuilder) Nullable() *ColumnBuilder {
	cb.spec.Nullable = true
	return cb
}

// NotNull marks the column as not nullable
func (cb *ColumnBuilder) NotNull() *ColumnBuilder {
	cb.spec.Nullable = false
	return cb
}

// Default sets the default value
func (cb *ColumnBuilder) Default(value interface{}) *ColumnBuilder {
	cb.spec.Default = value
	return cb
}

// Indexes

// Primary marks the column as primary key
func (cb *ColumnBuilder) Primary() *ColumnBuilder {
	cb.spec.Primary = true
	cb.spec.Nullable = false
	return cb
}

// Unique marks the column as unique. Unique columns must also be indexed.
func (cb *ColumnBuilder) Unique() *ColumnBuilder {
	cb.spec.Unique = true
	return cb
}

// Index marks the column to have an index
func (cb *ColumnBuilder) Index() *ColumnBuilder {
	cb.spec.Index = true
	return cb
}

// AutoIncrement marks the column as auto-incrementing
func (cb *ColumnBuilder) AutoIncrement() *ColumnBuilder {
	cb.spec.AutoIncrement = true
	cb.spec.Nullable = false
	return cb
}

// References points the column at table.column
func (cb *ColumnBuilder) References(table, column string) *ColumnBuilder {
	cb.spec.References = &ForeignKeySpec{Table: table, Column: column}
	return cb
}

// OnDelete sets the on delete action of the column's foreign key
func (cb *ColumnBuilder) OnDelete(action string) *ColumnBuilder {
	if cb.spec.References != nil {
		cb.spec.References.OnDelete = action
	}
	return cb
}
