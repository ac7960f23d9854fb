package db

import (
	"regexp"
)

// Dialect selects placeholder syntax for the SQL adapters.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

var pgPlaceholder = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $n placeholders to ? for SQLite. Queries must use each
// placeholder once, in order.
func (d Dialect) Rebind(q string) string {
	if d == SQLite {
		return pgPlaceholder.ReplaceAllString(q, "?")
	}
	return q
}
