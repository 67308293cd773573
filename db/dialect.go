package db

import (
	"strconv"
	"strings"
)

// Dialect captures the few SQL differences the repositories care about.
// Queries are written with '?' placeholders and passed through Rebind.
type Dialect struct {
	// Name is the database/sql driver name the dialect was derived from.
	Name string
	// Numbered reports whether placeholders are $1, $2, ... instead of '?'.
	Numbered bool
	// Returning reports whether INSERT ... RETURNING id is available. When
	// false the repository falls back to sql.Result.LastInsertId.
	Returning bool
}

// DialectFor returns the dialect for a database/sql driver name.
// Unknown names get the '?' dialect without RETURNING.
func DialectFor(driverName string) Dialect {
	switch driverName {
	case "postgres", "pgx":
		return Dialect{Name: driverName, Numbered: true, Returning: true}
	default:
		return Dialect{Name: driverName}
	}
}

// Rebind rewrites '?' placeholders into the dialect's native form.
// Question marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
