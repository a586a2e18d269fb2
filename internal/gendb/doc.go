// Package gendb is the local genealogy record store that imported
// repositories and sources are written to.
//
// Records follow the usual genealogy model: a Repository with addresses
// and URLs, a Source with attributes and repository references carrying a
// call number and media type. Every record has an opaque handle (a UUID)
// and a human-facing gramps id (R0000, S0000, ...).
//
// The store runs on database/sql with either SQLite (mattn/go-sqlite3,
// the default) or PostgreSQL (pgx stdlib driver). The schema is created on
// Open.
//
// All writes go through WithTx, which commits when the callback succeeds
// and rolls back on error or panic. Subscribers registered with Subscribe
// receive repository-add/update/delete and source-add/update/delete
// changes after commit; a rolled-back transaction emits nothing.
package gendb
