package migrations

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/onyx-go/schemaver/internal/logging"
)

const tracerName = "github.com/onyx-go/schemaver/migrations"

// MigrationConfig holds engine configuration
type MigrationConfig struct {
	// VersionTable is the reserved table holding version records
	VersionTable string
	// BaselineVersion is recorded for tables that exist without a version record
	BaselineVersion int
	Logger          logging.Logger
	Tracer          trace.Tracer
}

// DefaultMigrationConfig returns default migration configuration
func DefaultMigrationConfig() *MigrationConfig {
	return &MigrationConfig{
		VersionTable:    DefaultVersionTable,
		BaselineVersion: 1,
		Logger:          logging.NewNullLogger(),
		Tracer:          otel.Tracer(tracerName),
	}
}

// Validate validates the migration configuration and fills unset collaborators
func (mc *MigrationConfig) Validate() error {
	if mc.VersionTable == "" {
		return fmt.Errorf("version table name cannot be empty")
	}
	if !identifierPattern.MatchString(mc.VersionTable) {
		return fmt.Errorf("invalid version table name %q", mc.VersionTable)
	}
	if mc.BaselineVersion < 1 {
		return fmt.Errorf("baseline version must be at least 1, got %d", mc.BaselineVersion)
	}
	if mc.Logger == nil {
		mc.Logger = logging.NewNullLogger()
	}
	if mc.Tracer == nil {
		mc.Tracer = otel.Tracer(tracerName)
	}
	return nil
}
