package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, rest, err := Load("schemaver", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Driver != "sqlite3" {
		t.Errorf("expected default driver sqlite3, got %s", cfg.Driver)
	}
	if cfg.VersionTable != "schema_versions" {
		t.Errorf("expected default version table, got %s", cfg.VersionTable)
	}
	if cfg.Timeout != 5*time.Minute {
		t.Errorf("expected 5m timeout, got %v", cfg.Timeout)
	}
	if cfg.BaselineVersion != 1 {
		t.Errorf("expected baseline 1, got %d", cfg.BaselineVersion)
	}
	if len(rest) != 0 {
		t.Errorf("expected no remaining args, got %v", rest)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCHEMAVER_DRIVER", "postgres")
	t.Setenv("SCHEMAVER_DSN", "postgres://localhost/app")
	t.Setenv("SCHEMAVER_TIMEOUT", "30s")
	t.Setenv("SCHEMAVER_OTEL_ENDPOINT", "localhost:4318")

	cfg, _, err := Load("schemaver", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Driver != "postgres" || cfg.DSN != "postgres://localhost/app" {
		t.Errorf("unexpected connection settings %s %s", cfg.Driver, cfg.DSN)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.Timeout)
	}
	if cfg.OTelEndpoint != "localhost:4318" {
		t.Errorf("unexpected endpoint %s", cfg.OTelEndpoint)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SCHEMAVER_DRIVER", "postgres")

	cfg, rest, err := Load("schemaver", []string{"-driver", "mysql", "-dsn", "root@/app", "extra"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Driver != "mysql" {
		t.Errorf("expected flag to win, got %s", cfg.Driver)
	}
	if len(rest) != 1 || rest[0] != "extra" {
		t.Errorf("expected remaining args [extra], got %v", rest)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("SCHEMAVER_TIMEOUT", "soon")

	_, _, err := Load("schemaver", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{
			Driver:          "sqlite",
			DSN:             "app.db",
			LogLevel:        "info",
			LogFormat:       "json",
			VersionTable:    "schema_versions",
			BaselineVersion: 1,
			Timeout:         time.Minute,
			WatchSchedule:   "@every 1m",
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		key    string
	}{
		{"valid", func(c *Config) {}, ""},
		{"driver", func(c *Config) { c.Driver = "oracle" }, "driver"},
		{"dsn", func(c *Config) { c.DSN = "" }, "dsn"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"version table", func(c *Config) { c.VersionTable = "schema versions" }, "version_table"},
		{"baseline", func(c *Config) { c.BaselineVersion = 0 }, "baseline_version"},
		{"timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
	}

	for _, test := range tests {
		cfg := valid()
		test.mutate(&cfg)
		err := cfg.Validate()
		if test.key == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", test.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), test.key) {
			t.Errorf("%s: expected error naming %s, got %v", test.name, test.key, err)
		}
	}
}

func TestValidators(t *testing.T) {
	if err := RequiredValidator("k", nil); err == nil {
		t.Error("expected nil to be rejected")
	}
	if err := IntRangeValidator(1, 3)("k", "2"); err == nil {
		t.Error("expected non-integer to be rejected")
	}
	if err := OneOfValidator("a", "b")("k", "b"); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	chain := ChainValidator(RequiredValidator, RegexValidator(`^x+$`))
	if err := chain("k", "xxx"); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if err := chain("k", ""); err == nil {
		t.Error("expected empty value to fail the chain")
	}
}
