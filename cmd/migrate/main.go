package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Skryldev/userservice/config"
	"github.com/Skryldev/userservice/db"
	"github.com/Skryldev/userservice/migrations"
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("%v", err)
	}

	dsn := cfg.DatabaseURL
	if dsn == "" {
		if dsn, err = db.BuildDSN(cfg.DBDriver, cfg.DriverOptions()); err != nil {
			fatalf("%v", err)
		}
	}
	dbURL, err := migrateURL(cfg.DBDriver, dsn)
	if err != nil {
		fatalf("%v", err)
	}

	m, err := newMigrate(cfg.DBDriver, os.Getenv("MIGRATIONS_PATH"), dbURL)
	if err != nil {
		fatalf("migration init failed: %v", err)
	}
	defer m.Close()

	m.Log = &migrateLogger{}

	command := args[0]
	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatalf("up failed: %v", err)
		}
		slog.Info("migrations: up completed")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				fatalf("down: invalid steps argument %q", args[1])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatalf("down failed: %v", err)
		}
		slog.Info("migrations: down completed", "steps", steps)

	case "version":
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			fatalf("version failed: %v", err)
		}
		fmt.Printf("version: %d  dirty: %v\n", v, dirty)

	case "force":
		if len(args) < 2 {
			fatalf("force: version argument required")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			fatalf("force: invalid version %q", args[1])
		}
		if err := m.Force(v); err != nil {
			fatalf("force failed: %v", err)
		}
		slog.Info("migrations: forced", "version", v)

	case "drop":
		fmt.Fprintln(os.Stderr, "WARNING: drop will destroy all tables. Type 'yes' to confirm:")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" {
			fmt.Println("aborted")
			os.Exit(0)
		}
		if err := m.Drop(); err != nil {
			fatalf("drop failed: %v", err)
		}
		slog.Info("migrations: all tables dropped")

	default:
		usage()
		os.Exit(1)
	}
}

// newMigrate reads the embedded schema for driverName unless path points at
// a directory on disk.
func newMigrate(driverName, path, dbURL string) (*migrate.Migrate, error) {
	if path != "" {
		return migrate.New("file://"+path, dbURL)
	}
	dir, err := migrations.Dir(driverName)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(migrations.FS, dir)
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, dbURL)
}

// migrateURL turns a database/sql DSN into the URL form golang-migrate
// expects, whose scheme selects the migrate database driver.
func migrateURL(driverName, dsn string) (string, error) {
	switch driverName {
	case "postgres":
		return dsn, nil
	case "pgx":
		_, rest, ok := strings.Cut(dsn, "://")
		if !ok {
			return "", fmt.Errorf("pgx: DSN must be a URL, got %q", dsn)
		}
		return "pgx5://" + rest, nil
	case "mysql":
		return "mysql://" + dsn, nil
	case "sqlite3":
		path := strings.TrimPrefix(dsn, "file:")
		return "sqlite3://" + path, nil
	}
	return "", fmt.Errorf("no migrate driver for %q", driverName)
}

// ─────────────────────────────────────────────────────────────────────────────

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...any) {
	slog.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
func (l *migrateLogger) Verbose() bool { return false }

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate <command> [args]

Commands:
  up           Apply all pending migrations
  down [N]     Rollback N migrations (default: 1)
  version      Print current migration version
  force <V>    Force set migration version (bypass dirty state)
  drop         Drop all tables (dev only)

Environment:
  DB_DRIVER         sqlite3 (default), postgres, pgx or mysql.
  DATABASE_URL      Full database DSN. When empty it is built from DB_HOST,
                    DB_PORT, DB_USER, DB_PASSWORD, DB_NAME and DB_SSLMODE.
  MIGRATIONS_PATH   Read migrations from this directory instead of the
                    schema embedded in the binary.`)
}

func fatalf(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
