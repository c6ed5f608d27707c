package migrations

// ForeignKeyBuilder describes a foreign key declared with TableBuilder.Foreign
type ForeignKeyBuilder struct {
	column string
	spec   ForeignKeySpec
}

// Target definition

// References sets the referenced column
func (fkb *ForeignKeyBuilder) References(column string) *ForeignKeyBuilder {
	fkb.spec.Column = column
	return fkb
}

// On sets the referenced table
func (fkb *ForeignKeyBuilder) On(table string) *ForeignKeyBuilder {
	fkb.spec.Table = table
	return fkb
}

// Actions

// OnDelete sets the on delete action
func (fkb *ForeignKeyBuilder) OnDelete(action string) *ForeignKeyBuilder {
	fkb.spec.OnDelete = action
	return fkb
}

// CascadeOnDelete sets CASCADE on delete
func (fkb *ForeignKeyBuilder) CascadeOnDelete() *ForeignKeyBuilder {
	fkb.spec.OnDelete = ForeignKeyCascade
	return fkb
}

// NullOnDelete sets SET NULL on delete
func (fkb *ForeignKeyBuilder) NullOnDelete() *ForeignKeyBuilder {
	fkb.spec.OnDelete = ForeignKeySetNull
	return fkb
}
