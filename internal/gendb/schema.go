package gendb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

type dialect string

// rebind rewrites ? placeholders to $N for PostgreSQL. Statements in this
// package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if d != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS repository (
		handle    TEXT PRIMARY KEY,
		gramps_id TEXT NOT NULL UNIQUE,
		name      TEXT NOT NULL,
		type      INTEGER NOT NULL,
		changed   BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS repository_address (
		repository_handle TEXT NOT NULL,
		pos         INTEGER NOT NULL,
		street      TEXT NOT NULL,
		locality    TEXT NOT NULL,
		city        TEXT NOT NULL,
		county      TEXT NOT NULL,
		state       TEXT NOT NULL,
		country     TEXT NOT NULL,
		postal_code TEXT NOT NULL,
		phone       TEXT NOT NULL,
		PRIMARY KEY (repository_handle, pos)
	)`,
	`CREATE TABLE IF NOT EXISTS repository_url (
		repository_handle TEXT NOT NULL,
		pos         INTEGER NOT NULL,
		path        TEXT NOT NULL,
		description TEXT NOT NULL,
		type        INTEGER NOT NULL,
		PRIMARY KEY (repository_handle, pos)
	)`,
	`CREATE TABLE IF NOT EXISTS source (
		handle    TEXT PRIMARY KEY,
		gramps_id TEXT NOT NULL UNIQUE,
		title     TEXT NOT NULL,
		author    TEXT NOT NULL,
		abbrev    TEXT NOT NULL,
		changed   BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS source_attribute (
		source_handle TEXT NOT NULL,
		pos   INTEGER NOT NULL,
		type  TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (source_handle, pos)
	)`,
	`CREATE TABLE IF NOT EXISTS source_reporef (
		source_handle     TEXT NOT NULL,
		pos               INTEGER NOT NULL,
		repository_handle TEXT NOT NULL,
		call_number       TEXT NOT NULL,
		media             INTEGER NOT NULL,
		PRIMARY KEY (source_handle, pos)
	)`,
	`CREATE INDEX IF NOT EXISTS source_reporef_repository ON source_reporef (repository_handle)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
