package migrations

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/onyx-go/schemaver/internal/logging"
)

const savepointName = "schemaver_ddl"

// Stats counts the work an engine has performed
type Stats struct {
	Statements    int64
	TablesCreated int64
	StepsApplied  int64
}

type counters struct {
	statements    atomic.Int64
	tablesCreated atomic.Int64
	stepsApplied  atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Statements:    c.statements.Load(),
		TablesCreated: c.tablesCreated.Load(),
		StepsApplied:  c.stepsApplied.Load(),
	}
}

// runner is the single path every mutating statement goes through
type runner struct {
	conn    Conn
	dialect Dialect
	logger  logging.Logger
	stats   *counters
	inTx    bool
}

func (r *runner) exec(ctx context.Context, table, query string, args ...interface{}) error {
	r.logger.DebugContext(ctx, "Executing statement", map[string]interface{}{
		"table": table,
		"sql":   query,
	})
	r.stats.statements.Add(1)

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return &MigrationError{Table: table, Operation: "exec", Statement: query, Err: err}
	}
	return nil
}

// execTolerant runs DDL whose failure is acceptable when benign reports true.
// Inside a transaction on engines that abort on error, the statement runs
// under a savepoint so the transaction stays usable.
func (r *runner) execTolerant(ctx context.Context, table, query string, benign func(error) bool) error {
	guarded := r.inTx && r.dialect.GuardsDDL()
	if guarded {
		if err := r.exec(ctx, table, "SAVEPOINT "+savepointName); err != nil {
			return err
		}
	}

	err := r.exec(ctx, table, query)
	if err != nil && benign(errors.Unwrap(err)) {
		r.logger.DebugContext(ctx, "Ignoring benign DDL error", map[string]interface{}{
			"table": table,
			"sql":   query,
			"error": errors.Unwrap(err).Error(),
		})
		if guarded {
			if rbErr := r.exec(ctx, table, "ROLLBACK TO SAVEPOINT "+savepointName); rbErr != nil {
				return rbErr
			}
		}
		err = nil
	}
	if err != nil {
		return err
	}

	if guarded {
		return r.exec(ctx, table, "RELEASE SAVEPOINT "+savepointName)
	}
	return nil
}

// inTx runs fn on a fresh transaction, committing only if fn succeeds.
// SQLite runs with foreign key enforcement off for the duration so a table
// rebuild leaves references in other tables alone; violations are checked
// before commit instead.
func (e *Engine) inTx(ctx context.Context, fn func(r *runner) error) (err error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	sqlite := e.dialect.Family() == FamilySQLite
	if sqlite {
		restore, err := sqliteForeignKeysOff(ctx, conn)
		if err != nil {
			return err
		}
		defer func() {
			if rErr := restore(); rErr != nil && err == nil {
				err = rErr
			}
		}()
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	r := &runner{conn: tx, dialect: e.dialect, logger: e.logger, stats: &e.stats, inTx: true}
	if err := fn(r); err != nil {
		return err
	}
	if sqlite {
		if err := sqliteForeignKeyCheck(ctx, tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// migrateTable brings one table to its declared version
func (e *Engine) migrateTable(ctx context.Context, schema *TableSchema) (err error) {
	ctx, span := e.tracer.Start(ctx, "schemaver.migrate_table", trace.WithAttributes(
		attribute.String("db.sql.table", schema.Name),
		attribute.Int("schemaver.target_version", schema.Version),
	))
	defer endSpan(span, &err)

	logger := e.logger.WithContext(map[string]interface{}{"table": schema.Name})

	current, found, err := e.versions.get(ctx, e.db, schema.Name)
	if err != nil {
		return NewMigrationError(schema.Name, "read version", err)
	}

	if !found {
		exists, err := e.dialect.TableExists(ctx, e.db, schema.Name)
		if err != nil {
			return NewMigrationError(schema.Name, "introspect", err)
		}
		if !exists {
			return e.createTable(ctx, schema)
		}

		current = e.config.BaselineVersion
		logger.WarnContext(ctx, "Adopting unversioned table", map[string]interface{}{"baseline": current})
		if current <= schema.Version {
			err := e.inTx(ctx, func(r *runner) error {
				return e.versions.insert(ctx, r, schema.Name, current)
			})
			if err != nil {
				return NewMigrationError(schema.Name, "adopt", err)
			}
		}
	}

	span.SetAttributes(attribute.Int("schemaver.current_version", current))

	switch {
	case current == schema.Version:
		logger.DebugContext(ctx, "Table is up to date", map[string]interface{}{"version": current})
		return nil
	case current > schema.Version:
		return &MigrationError{Table: schema.Name, From: current, To: schema.Version, Operation: "check version", Err: ErrUnsupportedDowngrade}
	}

	for v := current + 1; v <= schema.Version; v++ {
		if err := e.applyStep(ctx, schema, v); err != nil {
			logger.ErrorContext(ctx, "Upgrade step failed", map[string]interface{}{
				"from":  v - 1,
				"to":    v,
				"error": err.Error(),
			})
			return err
		}
		logger.InfoContext(ctx, "Upgraded table", map[string]interface{}{"from": v - 1, "to": v})
	}
	return nil
}

// createTable creates an absent table directly at its declared version
func (e *Engine) createTable(ctx context.Context, schema *TableSchema) error {
	err := e.inTx(ctx, func(r *runner) error {
		if err := e.createSchema(ctx, r, schema); err != nil {
			return err
		}
		return e.versions.insert(ctx, r, schema.Name, schema.Version)
	})
	if err != nil {
		return withVersions(err, schema.Name, "create", 0, schema.Version)
	}

	e.stats.tablesCreated.Add(1)
	e.logger.InfoContext(ctx, "Created table", map[string]interface{}{
		"table":   schema.Name,
		"version": schema.Version,
	})
	return nil
}

// createSchema issues CREATE TABLE and every declared index
func (e *Engine) createSchema(ctx context.Context, r *runner, schema *TableSchema) error {
	if err := r.exec(ctx, schema.Name, e.dialect.CreateTableSQL(schema)); err != nil {
		return err
	}
	for _, idx := range schema.AllIndexes() {
		idx = resolveIndex(e.dialect, schema.Name, idx)
		stmt := e.dialect.CreateIndexSQL(idx, columnsFor(schema, idx.Columns))
		if err := r.execTolerant(ctx, schema.Name, stmt, e.dialect.IsIndexExists); err != nil {
			return err
		}
	}
	return nil
}

// applyStep replays the step to version v and records it in one transaction
func (e *Engine) applyStep(ctx context.Context, schema *TableSchema, v int) (err error) {
	ctx, span := e.tracer.Start(ctx, "schemaver.upgrade_step", trace.WithAttributes(
		attribute.String("db.sql.table", schema.Name),
		attribute.Int("schemaver.from_version", v-1),
		attribute.Int("schemaver.to_version", v),
	))
	defer endSpan(span, &err)

	step := schema.Upgrades[v]
	if step == nil {
		return &MigrationError{Table: schema.Name, From: v - 1, To: v, Operation: "upgrade", Err: ErrMissingUpgrade}
	}

	err = e.inTx(ctx, func(r *runner) error {
		if err := step(ctx, newAlterer(r, schema)); err != nil {
			return err
		}
		return e.versions.update(ctx, r, schema.Name, v)
	})
	if err != nil {
		return withVersions(err, schema.Name, "upgrade", v-1, v)
	}

	e.stats.stepsApplied.Add(1)
	return nil
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
