package migrations

import (
	"fmt"
	"strings"
)

// ResolveOrder returns the registry's tables with every table placed after
// the tables its foreign keys reference. Ties keep declaration order.
// References to tables outside the registry are ignored.
func ResolveOrder(reg *TableRegistry) ([]*TableSchema, error) {
	r := &resolver{
		reg:      reg,
		visited:  make(map[string]bool, reg.Len()),
		visiting: make(map[string]bool),
	}
	for _, table := range reg.tables {
		if err := r.visit(table, nil); err != nil {
			return nil, err
		}
	}
	return r.order, nil
}

type resolver struct {
	reg      *TableRegistry
	visited  map[string]bool
	visiting map[string]bool
	order    []*TableSchema
}

func (r *resolver) visit(table *TableSchema, path []string) error {
	if r.visited[table.Name] {
		return nil
	}

	path = append(path[:len(path):len(path)], table.Name)
	if r.visiting[table.Name] {
		return fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(path, " -> "))
	}
	r.visiting[table.Name] = true

	for _, dep := range table.Dependencies() {
		target, ok := r.reg.Lookup(dep)
		if !ok {
			continue
		}
		if err := r.visit(target, path); err != nil {
			return err
		}
	}

	delete(r.visiting, table.Name)
	r.visited[table.Name] = true
	r.order = append(r.order, table)
	return nil
}
