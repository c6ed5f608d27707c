package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// versionStore reads and writes the reserved version registry table
type versionStore struct {
	dialect Dialect
	table   string
}

// versionSchema declares the registry table; it is versioned like any other
func versionSchema(name string) *TableSchema {
	return DefineTable(name, 1, func(t *TableBuilder) {
		t.ID()
		t.String("table_name", 255).Unique().Index()
		t.Integer("version")
	})
}

func (vs *versionStore) get(ctx context.Context, q Queryer, table string) (int, bool, error) {
	query := fmt.Sprintf("SELECT version FROM %s WHERE table_name = %s",
		vs.dialect.QuoteIdent(vs.table), vs.dialect.Placeholder(1))

	var version int
	err := q.QueryRowContext(ctx, query, table).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, true, nil
}

func (vs *versionStore) all(ctx context.Context, q Queryer) ([]VersionRecord, error) {
	query := fmt.Sprintf("SELECT table_name, version FROM %s ORDER BY table_name", vs.dialect.QuoteIdent(vs.table))

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []VersionRecord
	for rows.Next() {
		var rec VersionRecord
		if err := rows.Scan(&rec.Table, &rec.Version); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (vs *versionStore) insert(ctx context.Context, r *runner, table string, version int) error {
	query := fmt.Sprintf("INSERT INTO %s (table_name, version) VALUES (%s, %s)",
		vs.dialect.QuoteIdent(vs.table), vs.dialect.Placeholder(1), vs.dialect.Placeholder(2))
	return r.exec(ctx, table, query, table, version)
}

func (vs *versionStore) update(ctx context.Context, r *runner, table string, version int) error {
	query := fmt.Sprintf("UPDATE %s SET version = %s WHERE table_name = %s",
		vs.dialect.QuoteIdent(vs.table), vs.dialect.Placeholder(1), vs.dialect.Placeholder(2))
	return r.exec(ctx, table, query, version, table)
}
