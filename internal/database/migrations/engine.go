package migrations

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/onyx-go/schemaver/internal/logging"
)

// Engine brings the tables of a registry to their declared versions
type Engine struct {
	db           ConnectionProvider
	dialect      Dialect
	config       *MigrationConfig
	logger       logging.Logger
	tracer       trace.Tracer
	versions     *versionStore
	versionTable *TableSchema
	stats        counters
}

// NewEngine creates an engine over one database
func NewEngine(db ConnectionProvider, dialect Dialect, config *MigrationConfig) (*Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if dialect == nil {
		return nil, fmt.Errorf("%w: no dialect", ErrUnsupportedDialect)
	}
	if config == nil {
		config = DefaultMigrationConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid migration config: %w", err)
	}

	return &Engine{
		db:           db,
		dialect:      dialect,
		config:       config,
		logger:       config.Logger.WithChannel("migrations"),
		tracer:       config.Tracer,
		versions:     &versionStore{dialect: dialect, table: config.VersionTable},
		versionTable: versionSchema(config.VersionTable),
	}, nil
}

// Dialect returns the engine's dialect
func (e *Engine) Dialect() Dialect {
	return e.dialect
}

// Stats returns the work performed so far
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// UpgradeAll migrates every table in dependency order, stopping at the first failure
func (e *Engine) UpgradeAll(ctx context.Context, reg *TableRegistry) (err error) {
	ctx, span := e.tracer.Start(ctx, "schemaver.upgrade_all", trace.WithAttributes(
		attribute.String("db.system", string(e.dialect.Family())),
	))
	defer endSpan(span, &err)

	order, err := e.order(reg)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("schemaver.tables", len(order)))

	if err := e.bootstrap(ctx); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "Upgrading tables", map[string]interface{}{"tables": len(order)})
	for _, table := range order {
		if err := e.migrateTable(ctx, table); err != nil {
			return err
		}
	}
	return nil
}

// CheckUpToDate returns the tables that are absent or behind, without changing anything
func (e *Engine) CheckUpToDate(ctx context.Context, reg *TableRegistry) ([]string, error) {
	plan, err := e.Plan(ctx, reg)
	if err != nil {
		return nil, err
	}

	var stale []string
	for _, tp := range plan.Tables {
		if tp.Action == ActionDowngrade {
			return nil, &MigrationError{Table: tp.Table, From: tp.Current, To: tp.Target, Operation: "check version", Err: ErrUnsupportedDowngrade}
		}
		if tp.Action != ActionNone && tp.Table != e.config.VersionTable {
			stale = append(stale, tp.Table)
		}
	}
	return stale, nil
}

// Plan computes, read-only, what UpgradeAll would do
func (e *Engine) Plan(ctx context.Context, reg *TableRegistry) (*MigrationPlan, error) {
	order, err := e.order(reg)
	if err != nil {
		return nil, err
	}

	registryExists, err := e.dialect.TableExists(ctx, e.db, e.config.VersionTable)
	if err != nil {
		return nil, NewMigrationError(e.config.VersionTable, "introspect", err)
	}

	plan := &MigrationPlan{}
	for _, table := range append([]*TableSchema{e.versionTable}, order...) {
		tp, err := e.planTable(ctx, table, registryExists)
		if err != nil {
			return nil, err
		}
		plan.Tables = append(plan.Tables, tp)
	}
	return plan, nil
}

// Status lists the version records
func (e *Engine) Status(ctx context.Context) ([]VersionRecord, error) {
	exists, err := e.dialect.TableExists(ctx, e.db, e.config.VersionTable)
	if err != nil {
		return nil, NewMigrationError(e.config.VersionTable, "introspect", err)
	}
	if !exists {
		return nil, nil
	}
	records, err := e.versions.all(ctx, e.db)
	if err != nil {
		return nil, NewMigrationError(e.config.VersionTable, "read versions", err)
	}
	return records, nil
}

func (e *Engine) planTable(ctx context.Context, table *TableSchema, registryExists bool) (TablePlan, error) {
	tp := TablePlan{Table: table.Name, Target: table.Version}

	found := false
	if registryExists {
		current, ok, err := e.versions.get(ctx, e.db, table.Name)
		if err != nil {
			return tp, NewMigrationError(table.Name, "read version", err)
		}
		tp.Current, found = current, ok
	}

	if !found {
		exists, err := e.dialect.TableExists(ctx, e.db, table.Name)
		if err != nil {
			return tp, NewMigrationError(table.Name, "introspect", err)
		}
		if !exists {
			tp.Action = ActionCreate
			return tp, nil
		}
		tp.Current = e.config.BaselineVersion
	}

	switch {
	case tp.Current > tp.Target:
		tp.Action = ActionDowngrade
	case !found:
		tp.Action = ActionAdopt
	case tp.Current == tp.Target:
		tp.Action = ActionNone
	default:
		tp.Action = ActionUpgrade
	}
	return tp, nil
}

func (e *Engine) order(reg *TableRegistry) ([]*TableSchema, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidTable)
	}
	if _, shadowed := reg.Lookup(e.config.VersionTable); shadowed {
		return nil, fmt.Errorf("%w: %s is reserved for version records", ErrInvalidTable, e.config.VersionTable)
	}
	return ResolveOrder(reg)
}

// bootstrap creates the version registry directly when absent, and
// otherwise migrates it like any other table
func (e *Engine) bootstrap(ctx context.Context) error {
	exists, err := e.dialect.TableExists(ctx, e.db, e.config.VersionTable)
	if err != nil {
		return NewMigrationError(e.config.VersionTable, "introspect", err)
	}
	if !exists {
		return e.createTable(ctx, e.versionTable)
	}
	return e.migrateTable(ctx, e.versionTable)
}
