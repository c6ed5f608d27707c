package migrations

// IndexBuilder refines a table-level index
type IndexBuilder struct {
	spec IndexSpec
}

// Name overrides the dialect's canonical index name
func (ib *IndexBuilder) Name(name string) *IndexBuilder {
	ib.spec.Name = name
	return ib
}

// Unique marks the index as unique
func (ib *IndexBuilder) Unique() *IndexBuilder {
	ib.spec.Unique = true
	return ib
}

// Spec returns the built index
func (ib *IndexBuilder) Spec() IndexSpec {
	return ib.spec
}
