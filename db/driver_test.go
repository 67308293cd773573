package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/Skryldev/userservice/db"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		driver string
		opts   db.DriverOptions
		want   string
	}{
		{
			"postgres",
			db.DriverOptions{Host: "db", User: "app", Password: "s3cret", Database: "users"},
			"postgres://app:s3cret@db:5432/users?sslmode=disable",
		},
		{
			"pgx",
			db.DriverOptions{Host: "db", Port: 5433, Database: "users", SSLMode: "require"},
			"postgres://db:5433/users?sslmode=require",
		},
		{
			"mysql",
			db.DriverOptions{Host: "db", User: "app", Password: "pw", Database: "users"},
			"app:pw@tcp(db:3306)/users?parseTime=true",
		},
		{
			"sqlite3",
			db.DriverOptions{Database: "users.db"},
			"users.db",
		},
		{
			"sqlite3",
			db.DriverOptions{Database: "users.db", Extra: map[string]string{"_busy_timeout": "5000"}},
			"file:users.db?_busy_timeout=5000",
		},
	}
	for _, test := range tests {
		got, err := db.BuildDSN(test.driver, test.opts)
		if err != nil {
			t.Fatalf("%s: %v", test.driver, err)
		}
		if got != test.want {
			t.Errorf("BuildDSN(%s) = %q, want %q", test.driver, got, test.want)
		}
	}
}

func TestBuildDSN_MissingFields(t *testing.T) {
	for _, name := range []string{"postgres", "pgx", "mysql", "sqlite3"} {
		if _, err := db.BuildDSN(name, db.DriverOptions{}); err == nil {
			t.Errorf("%s: expected an error for empty options", name)
		}
	}
}

func TestLookupDriver_Unknown(t *testing.T) {
	if _, err := db.LookupDriver("oracle"); err == nil {
		t.Fatal("expected an error for an unregistered driver")
	}
}

func TestOpenWithDriver_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	d, err := db.OpenWithDriver("sqlite3", db.DriverOptions{Database: path}, db.Config{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	if _, err := d.Exec(ctx, `CREATE TABLE t (k TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := d.Exec(ctx, `INSERT INTO t (k) VALUES ('a')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err = d.Exec(ctx, `INSERT INTO t (k) VALUES ('a')`)
	if !db.IsDuplicateKey(err) {
		t.Fatalf("expected ErrDuplicateKey through the driver mapper, got %v", err)
	}
}

func TestDefaultErrorMapper_DriverErrors(t *testing.T) {
	m := db.DefaultErrorMapper()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"pq unique", &pq.Error{Code: "23505"}, db.ErrDuplicateKey},
		{"pq fk", &pq.Error{Code: "23503"}, db.ErrForeignKeyViolation},
		{"pq deadlock", &pq.Error{Code: "40P01"}, db.ErrDeadlock},
		{"pq cancel", &pq.Error{Code: "57014"}, db.ErrTimeout},
		{"pgx unique", &pgconn.PgError{Code: "23505"}, db.ErrDuplicateKey},
		{"pgx not null", &pgconn.PgError{Code: "23502"}, db.ErrCheckViolation},
		{"pgx connection", &pgconn.PgError{Code: "08006"}, db.ErrConnectionFailed},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, db.ErrDuplicateKey},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, db.ErrDeadlock},
		{"context deadline", context.DeadlineExceeded, db.ErrTimeout},
	}
	for _, test := range tests {
		got := m.Map(test.err)
		if !errors.Is(got, test.want) {
			t.Errorf("%s: Map = %v, want %v", test.name, got, test.want)
		}
		if !strings.Contains(got.Error(), "cause") {
			t.Errorf("%s: expected the cause in %q", test.name, got)
		}
	}

	plain := errors.New("plain")
	if got := m.Map(plain); got != plain {
		t.Errorf("unrecognised errors must pass through, got %v", got)
	}
}
