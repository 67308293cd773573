// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"io/fs"
	"sort"
	"testing"

	"github.com/Skryldev/userservice/db"
	"github.com/Skryldev/userservice/migrations"
)

// Open returns an in-memory SQLite database with every up migration applied.
// The pool is capped at one connection because each SQLite ":memory:"
// connection is a separate database.
func Open(t testing.TB, hooks ...db.Hook) *db.DB {
	t.Helper()

	d, err := db.Open(db.Config{
		DSN:          ":memory:",
		DriverName:   "sqlite3",
		MaxOpenConns: 1,
		Hooks:        hooks,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	dir, err := migrations.Dir("sqlite3")
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	files, err := fs.Glob(migrations.FS, dir+"/*.up.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := fs.ReadFile(migrations.FS, f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := d.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply %s: %v", f, err)
		}
	}
	return d
}
