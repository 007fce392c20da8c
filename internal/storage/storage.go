// Package storage holds what the sqlite and postgres backends share.
package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Database is implemented by sqlite.Sqlite and postgres.Postgres.
type Database interface {
	Handle() *sql.DB
	Dialect() Dialect
	Migrate() error
	Ping(ctx context.Context) error
	Close() error
}

// Rebind rewrites '?' placeholders into the dialect's native form.
// Queries are written once with '?' and must not contain literal question marks.
func Rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SplitStatements cuts a schema file into executable statements.
func SplitStatements(schema string) []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if st := strings.TrimSpace(stmt); st != "" {
			out = append(out, st)
		}
	}
	return out
}
