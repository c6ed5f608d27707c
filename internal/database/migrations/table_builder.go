package migrations

// TableBuilder collects a table declaration inside DefineTable
type TableBuilder struct {
	name     string
	columns  []*ColumnBuilder
	indexes  []*IndexBuilder
	foreigns []*ForeignKeyBuilder
	upgrades map[int]UpgradeFunc
}

// DefineTable declares a table at its current version
func DefineTable(name string, version int, build func(t *TableBuilder)) *TableSchema {
	tb := &TableBuilder{
		name:     name,
		upgrades: make(map[int]UpgradeFunc),
	}
	build(tb)
	return tb.schema(version)
}

func (tb *TableBuilder) schema(version int) *TableSchema {
	schema := &TableSchema{
		Name:     tb.name,
		Version:  version,
		Upgrades: tb.upgrades,
	}

	for _, cb := range tb.columns {
		schema.Columns = append(schema.Columns, cb.spec)
	}
	for _, fk := range tb.foreigns {
		for i := range schema.Columns {
			if schema.Columns[i].Name == fk.column {
				ref := fk.spec
				schema.Columns[i].References = &ref
			}
		}
	}
	for _, ib := range tb.indexes {
		schema.Indexes = append(schema.Indexes, ib.spec)
	}
	return schema
}

func (tb *TableBuilder) addColumn(name, columnType string) *ColumnBuilder {
	cb := &ColumnBuilder{spec: ColumnSpec{Name: name, Type: columnType}}
	tb.columns = append(tb.columns, cb)
	return cb
}

// Primary keys

// ID adds an auto-incrementing integer primary key named id
func (tb *TableBuilder) ID() *ColumnBuilder {
	return tb.addColumn("id", ColumnTypeInteger).Primary().AutoIncrement()
}

// BigID adds an auto-incrementing big integer primary key named id
func (tb *TableBuilder) BigID() *ColumnBuilder {
	return tb.addColumn("id", ColumnTypeBigInteger).Primary().AutoIncrement()
}

// String types

// String adds a bounded string column; length defaults to 255
func (tb *TableBuilder) String(name string, length ...int) *ColumnBuilder {
	cb := tb.addColumn(name, ColumnTypeString)
	if len(length) > 0 {
		cb.spec.Length = length[0]
	}
	return cb
}

// Text adds an unbounded text column
func (tb *TableBuilder) Text(name string) *ColumnBuilder {
	return tb.addColumn(name, ColumnTypeText)
}

// Numeric types

func (tb *TableBuilder) Integer(name string) *ColumnBuilder {
	return tb.addColumn(name, ColumnTypeInteger)
}

func (tb *TableBuilder) BigInteger(name string) *ColumnBuilder {
	return tb.addColumn(name, ColumnTypeBigInteger)
}

func (tb *TableBuilder) SmallInteger(name string) *ColumnBuilder {
	return tb.addColumn(name, ColumnTypeSmallInteger)
}

// Other types

func (tb *TableBuilder) Boolean(name string) *ColumnBuilder {
	return tb.addColumn(name, ColumnTypeBoolean)
}

func (tb *TableBuilder) DateTime(name string) *ColumnBuilder {
	return tb.addColumn(name, ColumnTypeDateTime)
}

// Timestamps adds nullable created_at and updated_at columns
func (tb *TableBuilder) Timestamps() {
	tb.DateTime("created_at").Nullable()
	tb.DateTime("updated_at").Nullable()
}

// Indexes

// Index adds a table-level index
func (tb *TableBuilder) Index(columns ...string) *IndexBuilder {
	ib := &IndexBuilder{spec: IndexSpec{Table: tb.name, Columns: columns}}
	tb.indexes = append(tb.indexes, ib)
	return ib
}

// Unique adds a table-level unique index
func (tb *TableBuilder) Unique(columns ...string) *IndexBuilder {
	return tb.Index(columns...).Unique()
}

// Foreign keys

// Foreign starts a foreign key on an already declared column
func (tb *TableBuilder) Foreign(column string) *ForeignKeyBuilder {
	fk := &ForeignKeyBuilder{column: column}
	tb.foreigns = append(tb.foreigns, fk)
	return fk
}

// Upgrades

// Upgrade registers the step that moves the live table to version
func (tb *TableBuilder) Upgrade(version int, fn UpgradeFunc) {
	tb.upgrades[version] = fn
}
