package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/onyx-go/schemaver/internal/config"
	"github.com/onyx-go/schemaver/internal/database"
	"github.com/onyx-go/schemaver/internal/database/migrations"
	"github.com/onyx-go/schemaver/internal/logging"
	"github.com/onyx-go/schemaver/internal/tables"
	"github.com/onyx-go/schemaver/internal/telemetry"
	"github.com/onyx-go/schemaver/internal/watch"
)

type Command struct {
	Name        string
	Description string
	Action      func(args []string) error
}

var commands = []Command{
	{
		Name:        "upgrade",
		Description: "Bring every table up to its declared version",
		Action:      upgrade,
	},
	{
		Name:        "check",
		Description: "Exit non-zero when any table is behind its declared version",
		Action:      check,
	},
	{
		Name:        "plan",
		Description: "Show what upgrade would do without changing anything",
		Action:      plan,
	},
	{
		Name:        "status",
		Description: "List the recorded table versions",
		Action:      status,
	},
	{
		Name:        "watch",
		Description: "Check for schema drift on a cron schedule",
		Action:      watchDrift,
	},
}

// errStale is returned by check so main exits 1 without an extra error line
var errStale = errors.New("tables are behind their declared versions")

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	commandName := os.Args[1]
	args := os.Args[2:]

	for _, cmd := range commands {
		if cmd.Name == commandName {
			if err := cmd.Action(args); err != nil {
				if !errors.Is(err, errStale) {
					fmt.Printf("Error: %v\n", err)
				}
				os.Exit(1)
			}
			return
		}
	}

	fmt.Printf("Unknown command: %s\n", commandName)
	showHelp()
	os.Exit(2)
}

func showHelp() {
	fmt.Println("schemaver - versioned table migrations")
	fmt.Println("\nUsage:")
	fmt.Println("  schemaver [command] [flags]")
	fmt.Println("\nAvailable commands:")
	for _, cmd := range commands {
		fmt.Printf("  %-10s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println("\nFlags override SCHEMAVER_* environment variables:")
	fmt.Println("  -driver -dsn -log-level -log-format -version-table -timeout -schedule")
}

// app is everything a command needs, built from configuration
type app struct {
	cfg      config.Config
	logger   logging.Logger
	db       *database.DB
	engine   *migrations.Engine
	registry *migrations.TableRegistry
	shutdown func(context.Context) error
}

func setup(ctx context.Context, name string, args []string) (*app, error) {
	cfg, _, err := config.Load(name, args)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:   logging.ParseLogLevel(cfg.LogLevel),
		Format:  cfg.LogFormat,
		Channel: "schemaver",
	}, os.Stderr)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		return nil, err
	}

	registry, err := tables.Registry()
	if err != nil {
		shutdown(ctx)
		return nil, err
	}

	db, err := database.NewDB(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		shutdown(ctx)
		return nil, err
	}

	dialect, err := db.Dialect()
	if err == nil {
		var engine *migrations.Engine
		engine, err = migrations.NewEngine(db, dialect, &migrations.MigrationConfig{
			VersionTable:    cfg.VersionTable,
			BaselineVersion: cfg.BaselineVersion,
			Logger:          logger,
		})
		if err == nil {
			return &app{
				cfg:      cfg,
				logger:   logger,
				db:       db,
				engine:   engine,
				registry: registry,
				shutdown: shutdown,
			}, nil
		}
	}
	db.Close()
	shutdown(ctx)
	return nil, err
}

func (a *app) close() {
	a.db.Close()
	if err := a.shutdown(context.Background()); err != nil {
		a.logger.Warn("Failed to flush traces", map[string]interface{}{"error": err.Error()})
	}
}

// run sets up the app, applies the configured timeout and calls fn
func run(name string, args []string, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, name, args)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return fn(ctx, a)
}

func upgrade(args []string) error {
	return run("upgrade", args, func(ctx context.Context, a *app) error {
		if err := a.engine.UpgradeAll(ctx, a.registry); err != nil {
			return err
		}
		stats := a.engine.Stats()
		fmt.Printf("Upgraded %d tables: %d created, %d steps applied, %d statements\n",
			a.registry.Len(), stats.TablesCreated, stats.StepsApplied, stats.Statements)
		return nil
	})
}

func check(args []string) error {
	return run("check", args, func(ctx context.Context, a *app) error {
		stale, err := a.engine.CheckUpToDate(ctx, a.registry)
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			fmt.Println("All tables are up to date")
			return nil
		}
		fmt.Printf("Stale tables: %s\n", strings.Join(stale, ", "))
		return errStale
	})
}

func plan(args []string) error {
	return run("plan", args, func(ctx context.Context, a *app) error {
		p, err := a.engine.Plan(ctx, a.registry)
		if err != nil {
			return err
		}
		for _, tp := range p.Tables {
			fmt.Println(tp.String())
		}
		return nil
	})
}

func status(args []string) error {
	return run("status", args, func(ctx context.Context, a *app) error {
		records, err := a.engine.Status(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No version records. Run 'schemaver upgrade' first.")
			return nil
		}
		fmt.Printf("%-30s %s\n", "Table", "Version")
		for _, rec := range records {
			fmt.Printf("%-30s %d\n", rec.Table, rec.Version)
		}
		return nil
	})
}

func watchDrift(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, "watch", args)
	if err != nil {
		return err
	}
	defer a.close()

	w, err := watch.New(a.cfg.WatchSchedule, func(ctx context.Context) ([]string, error) {
		return a.engine.CheckUpToDate(ctx, a.registry)
	}, a.logger, a.cfg.Timeout)
	if err != nil {
		return err
	}

	return w.Run(ctx)
}
