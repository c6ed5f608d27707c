package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the schemaver command settings. Environment variables are
// read first; command-line flags override them.
type Config struct {
	Driver          string        `env:"SCHEMAVER_DRIVER"           envDefault:"sqlite3"`
	DSN             string        `env:"SCHEMAVER_DSN"              envDefault:"schemaver.db"`
	LogLevel        string        `env:"SCHEMAVER_LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"SCHEMAVER_LOG_FORMAT"       envDefault:"console"`
	VersionTable    string        `env:"SCHEMAVER_VERSION_TABLE"    envDefault:"schema_versions"`
	BaselineVersion int           `env:"SCHEMAVER_BASELINE_VERSION" envDefault:"1"`
	Timeout         time.Duration `env:"SCHEMAVER_TIMEOUT"          envDefault:"5m"`
	WatchSchedule   string        `env:"SCHEMAVER_WATCH_SCHEDULE"   envDefault:"0 */5 * * * *"`
	OTelEndpoint    string        `env:"SCHEMAVER_OTEL_ENDPOINT"`
	ServiceName     string        `env:"SCHEMAVER_SERVICE_NAME"     envDefault:"schemaver"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the environment, applies flags from args and validates the result.
// It returns the arguments left after the flags.
func Load(name string, args []string) (Config, []string, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, nil, err
	}

	rest, err := cfg.ApplyFlags(name, args)
	if err != nil {
		return Config{}, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, nil, err
	}
	return cfg, rest, nil
}

// ApplyFlags overrides fields from command-line flags
func (c *Config) ApplyFlags(name string, args []string) ([]string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&c.Driver, "driver", c.Driver, "database driver (sqlite3, sqlite, mysql, postgres)")
	fs.StringVar(&c.DSN, "dsn", c.DSN, "data source name")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "console or json")
	fs.StringVar(&c.VersionTable, "version-table", c.VersionTable, "table holding version records")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "deadline for one run")
	fs.StringVar(&c.WatchSchedule, "schedule", c.WatchSchedule, "cron schedule for watch, with seconds")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	return fs.Args(), nil
}

// Validate checks every field against its validator
func (c Config) Validate() error {
	checks := []struct {
		key       string
		value     interface{}
		validator ConfigValidator
	}{
		{"driver", c.Driver, OneOfValidator("sqlite3", "sqlite", "mysql", "postgres", "postgresql")},
		{"dsn", c.DSN, RequiredValidator},
		{"log_level", c.LogLevel, OneOfValidator("debug", "info", "warn", "warning", "error")},
		{"log_format", c.LogFormat, OneOfValidator("console", "json")},
		{"version_table", c.VersionTable, ChainValidator(RequiredValidator, RegexValidator(`^[A-Za-z_][A-Za-z0-9_]*$`))},
		{"baseline_version", c.BaselineVersion, IntRangeValidator(1, 1<<31-1)},
		{"timeout", c.Timeout, DurationRangeValidator(time.Second, 24*time.Hour)},
		{"watch_schedule", c.WatchSchedule, RequiredValidator},
	}

	for _, check := range checks {
		if err := check.validator(check.key, check.value); err != nil {
			return err
		}
	}
	return nil
}
