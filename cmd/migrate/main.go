package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/meltedmeethas/storefront-backend/pkg/config"
	"github.com/meltedmeethas/storefront-backend/pkg/db"
	"github.com/meltedmeethas/storefront-backend/pkg/logger"
	"github.com/meltedmeethas/storefront-backend/pkg/migrate"
)

// options are the parsed command-line flags.
type options struct {
	cmd       string
	dir       string
	name      string
	version   string
	allowProd bool
}

// destructive commands drop storefront data (orders, carts, users) and are
// refused in production unless -allow-prod is passed.
var destructive = map[string]bool{
	"down":  true,
	"redo":  true,
	"reset": true,
}

// offline commands only touch the migrations directory.
var offline = map[string]bool{
	"create":   true,
	"validate": true,
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.cmd, "cmd", "up", "up|down|redo|reset|status|version|create|validate")
	fs.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	fs.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	fs.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	fs.BoolVar(&opts.allowProd, "allow-prod", false, "permit down, redo and reset against a production database")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch opts.cmd {
	case "up", "down", "redo", "reset", "status", "validate":
	case "create":
		if opts.name == "" {
			return options{}, errors.New("missing -name for create")
		}
	case "version":
		if opts.version == "" {
			return options{}, errors.New("missing -version for version")
		}
	default:
		return options{}, fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
	return opts, nil
}

func guardProduction(opts options, app config.AppConfig) error {
	if destructive[opts.cmd] && app.IsProd() && !opts.allowProd {
		return fmt.Errorf("%s refused in %s without -allow-prod", opts.cmd, app.Env)
	}
	return nil
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		logg.Error(context.Background(), "invalid flags", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	if err := guardProduction(opts, cfg.App); err != nil {
		logg.Error(ctx, "migration refused", err)
		os.Exit(1)
	}

	if offline[opts.cmd] {
		if err := runOffline(opts); err != nil {
			logg.Error(ctx, "migration command failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "migration command finished")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	if opts.cmd == "version" {
		err = migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	} else {
		err = migrate.Run(ctx, sqlDB, opts.dir, opts.cmd)
	}
	if err != nil {
		logg.Error(ctx, "goose "+opts.cmd+" failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration command finished")
}

func runOffline(opts options) error {
	if opts.cmd == "create" {
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Println("created migration:", path)
		return nil
	}
	if err := migrate.ValidateDir(opts.dir); err != nil {
		return fmt.Errorf("validate migrations: %w", err)
	}
	return nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
