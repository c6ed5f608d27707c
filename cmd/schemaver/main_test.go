package main

import (
	"errors"
	"path/filepath"
	"testing"
)

func useTempDatabase(t *testing.T) {
	t.Helper()
	t.Setenv("SCHEMAVER_DRIVER", "sqlite3")
	t.Setenv("SCHEMAVER_DSN", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("SCHEMAVER_LOG_LEVEL", "error")
}

func TestCommandsAgainstSQLite(t *testing.T) {
	useTempDatabase(t)

	if err := check(nil); !errors.Is(err, errStale) {
		t.Fatalf("Expected stale tables before upgrade, got %v", err)
	}
	if err := plan(nil); err != nil {
		t.Fatalf("Unexpected plan error %v", err)
	}
	if err := status(nil); err != nil {
		t.Fatalf("Unexpected status error %v", err)
	}

	if err := upgrade(nil); err != nil {
		t.Fatalf("Unexpected upgrade error %v", err)
	}
	if err := check(nil); err != nil {
		t.Errorf("Expected all tables up to date, got %v", err)
	}
	if err := status(nil); err != nil {
		t.Errorf("Unexpected status error %v", err)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	useTempDatabase(t)
	dsn := filepath.Join(t.TempDir(), "flag.db")

	if err := upgrade([]string{"-dsn", dsn, "-version-table", "versions"}); err != nil {
		t.Fatalf("Unexpected upgrade error %v", err)
	}
	if err := check([]string{"-dsn", dsn, "-version-table", "versions"}); err != nil {
		t.Errorf("Expected the flagged database to be current, got %v", err)
	}
	if err := check(nil); !errors.Is(err, errStale) {
		t.Errorf("Expected the environment database to be untouched, got %v", err)
	}
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	useTempDatabase(t)

	if _, err := setup(t.Context(), "upgrade", []string{"-driver", "oracle"}); err == nil {
		t.Error("Expected an unsupported driver to be rejected")
	}
	if _, err := setup(t.Context(), "upgrade", []string{"-version-table", "bad-name"}); err == nil {
		t.Error("Expected an invalid version table to be rejected")
	}
}

func TestWatchRejectsBadSchedule(t *testing.T) {
	useTempDatabase(t)

	if err := watchDrift([]string{"-schedule", "not a schedule"}); err == nil {
		t.Error("Expected an invalid schedule to be rejected")
	}
}
