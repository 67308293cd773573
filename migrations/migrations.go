// Package migrations embeds the SQL schema for every supported dialect.
package migrations

import (
	"embed"
	"fmt"
)

//go:embed sqlite3/*.sql postgres/*.sql mysql/*.sql
var FS embed.FS

// Dir returns the directory inside FS holding the migrations for a
// database/sql driver name.
func Dir(driverName string) (string, error) {
	switch driverName {
	case "sqlite3", "sqlite":
		return "sqlite3", nil
	case "postgres", "postgresql", "pgx", "pgx5":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	}
	return "", fmt.Errorf("migrations: no schema for driver %q", driverName)
}
