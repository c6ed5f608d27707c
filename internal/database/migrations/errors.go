package migrations

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedDowngrade means the database is ahead of the running code
	ErrUnsupportedDowngrade = errors.New("database version is newer than the declared version")
	// ErrStructuralConstraint rejects declarations the engines cannot enforce safely
	ErrStructuralConstraint = errors.New("structural constraint violation")
	ErrDependencyCycle      = errors.New("foreign key dependency cycle")
	ErrMissingUpgrade       = errors.New("missing upgrade step")
	ErrUnsupportedDialect   = errors.New("unsupported database dialect")
	ErrInvalidTable         = errors.New("invalid table definition")
	ErrDuplicateTable       = errors.New("duplicate table definition")
	ErrUnknownColumn        = errors.New("unknown column")
)

// MigrationError carries the table and version transition a failure happened in
type MigrationError struct {
	Table     string
	From      int
	To        int
	Operation string
	Statement string
	Err       error
}

func (e *MigrationError) Error() string {
	msg := fmt.Sprintf("migration error in %s", e.Table)
	if e.To > 0 {
		msg += fmt.Sprintf(" (v%d -> v%d)", e.From, e.To)
	}
	msg += fmt.Sprintf(" during %s", e.Operation)
	if e.Statement != "" {
		msg += fmt.Sprintf(" [%s]", e.Statement)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// NewMigrationError creates a new migration error
func NewMigrationError(table, operation string, err error) *MigrationError {
	return &MigrationError{
		Table:     table,
		Operation: operation,
		Err:       err,
	}
}

// withVersions attaches the failing transition to err, reusing an existing MigrationError
func withVersions(err error, table, operation string, from, to int) error {
	var me *MigrationError
	if errors.As(err, &me) {
		if me.Table == "" {
			me.Table = table
		}
		if me.To == 0 {
			me.From, me.To = from, to
		}
		return err
	}
	return &MigrationError{Table: table, From: from, To: to, Operation: operation, Err: err}
}
