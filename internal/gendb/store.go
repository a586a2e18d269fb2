package gendb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a handle or gramps id has no record.
var ErrNotFound = errors.New("gendb: record not found")

// Options configure Open.
type Options struct {
	// Driver is DriverSQLite (default) or DriverPostgres.
	Driver string
	// DSN is a file path for sqlite3 or a connection string for pgx.
	DSN    string
	Logger *log.Logger
}

// Store is the local genealogy record store.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *log.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Change)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the store and creates the schema when missing.
func Open(ctx context.Context, opts Options) (*Store, error) {
	driver := strings.TrimSpace(opts.Driver)
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	if driver == DriverSQLite && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// One writer at a time; also keeps :memory: on a single connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Store{
		db:      db,
		dialect: dialect(driver),
		logger:  logger,
		subs:    make(map[int]func(Change)),
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("record store opened", "driver", driver)
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RepositoryHandles returns every repository handle, ordered by gramps id.
func (s *Store) RepositoryHandles(ctx context.Context) ([]string, error) {
	return s.handles(ctx, s.db, `SELECT handle FROM repository ORDER BY gramps_id`)
}

// SourceHandles returns every source handle, ordered by gramps id.
func (s *Store) SourceHandles(ctx context.Context) ([]string, error) {
	return s.handles(ctx, s.db, `SELECT handle FROM source ORDER BY gramps_id`)
}

// Repository fetches one repository by handle.
func (s *Store) Repository(ctx context.Context, handle string) (Repository, error) {
	return s.loadRepository(ctx, s.db, "handle", handle)
}

// RepositoryByGrampsID fetches one repository by its gramps id.
func (s *Store) RepositoryByGrampsID(ctx context.Context, id string) (Repository, error) {
	return s.loadRepository(ctx, s.db, "gramps_id", id)
}

// Repositories returns every repository with its addresses and URLs.
func (s *Store) Repositories(ctx context.Context) ([]Repository, error) {
	handles, err := s.RepositoryHandles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Repository, 0, len(handles))
	for _, h := range handles {
		repo, err := s.Repository(ctx, h)
		if err != nil {
			return nil, err
		}
		out = append(out, repo)
	}
	return out, nil
}

// Source fetches one source by handle.
func (s *Store) Source(ctx context.Context, handle string) (Source, error) {
	return s.loadSource(ctx, s.db, "handle", handle)
}

// SourceByGrampsID fetches one source by its gramps id.
func (s *Store) SourceByGrampsID(ctx context.Context, id string) (Source, error) {
	return s.loadSource(ctx, s.db, "gramps_id", id)
}

// Sources returns every source with its attributes and repository references.
func (s *Store) Sources(ctx context.Context) ([]Source, error) {
	handles, err := s.SourceHandles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Source, 0, len(handles))
	for _, h := range handles {
		src, err := s.Source(ctx, h)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

func (s *Store) handles(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query handles: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan handle: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// column is either "handle" or "gramps_id".
func (s *Store) loadRepository(ctx context.Context, q querier, column, key string) (Repository, error) {
	var repo Repository
	var typ int
	var changed int64
	row := q.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT handle, gramps_id, name, type, changed FROM repository WHERE `+column+` = ?`), key)
	if err := row.Scan(&repo.Handle, &repo.GrampsID, &repo.Name, &typ, &changed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Repository{}, fmt.Errorf("repository %s: %w", key, ErrNotFound)
		}
		return Repository{}, fmt.Errorf("load repository %s: %w", key, err)
	}
	repo.Type = RepositoryType(typ)
	repo.Changed = time.Unix(changed, 0)

	rows, err := q.QueryContext(ctx, s.dialect.rebind(
		`SELECT street, locality, city, county, state, country, postal_code, phone
		 FROM repository_address WHERE repository_handle = ? ORDER BY pos`), repo.Handle)
	if err != nil {
		return Repository{}, fmt.Errorf("load addresses: %w", err)
	}
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.Street, &a.Locality, &a.City, &a.County, &a.State, &a.Country, &a.PostalCode, &a.Phone); err != nil {
			_ = rows.Close()
			return Repository{}, fmt.Errorf("scan address: %w", err)
		}
		repo.Addresses = append(repo.Addresses, a)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return Repository{}, fmt.Errorf("load addresses: %w", err)
	}

	rows, err = q.QueryContext(ctx, s.dialect.rebind(
		`SELECT path, description, type FROM repository_url WHERE repository_handle = ? ORDER BY pos`), repo.Handle)
	if err != nil {
		return Repository{}, fmt.Errorf("load urls: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var u URL
		var ut int
		if err := rows.Scan(&u.Path, &u.Description, &ut); err != nil {
			return Repository{}, fmt.Errorf("scan url: %w", err)
		}
		u.Type = URLType(ut)
		repo.URLs = append(repo.URLs, u)
	}
	if err := rows.Err(); err != nil {
		return Repository{}, fmt.Errorf("load urls: %w", err)
	}
	return repo, nil
}

func (s *Store) loadSource(ctx context.Context, q querier, column, key string) (Source, error) {
	var src Source
	var changed int64
	row := q.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT handle, gramps_id, title, author, abbrev, changed FROM source WHERE `+column+` = ?`), key)
	if err := row.Scan(&src.Handle, &src.GrampsID, &src.Title, &src.Author, &src.Abbrev, &changed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Source{}, fmt.Errorf("source %s: %w", key, ErrNotFound)
		}
		return Source{}, fmt.Errorf("load source %s: %w", key, err)
	}
	src.Changed = time.Unix(changed, 0)

	rows, err := q.QueryContext(ctx, s.dialect.rebind(
		`SELECT type, value FROM source_attribute WHERE source_handle = ? ORDER BY pos`), src.Handle)
	if err != nil {
		return Source{}, fmt.Errorf("load attributes: %w", err)
	}
	for rows.Next() {
		var a SrcAttribute
		if err := rows.Scan(&a.Type, &a.Value); err != nil {
			_ = rows.Close()
			return Source{}, fmt.Errorf("scan attribute: %w", err)
		}
		src.Attributes = append(src.Attributes, a)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return Source{}, fmt.Errorf("load attributes: %w", err)
	}

	rows, err = q.QueryContext(ctx, s.dialect.rebind(
		`SELECT repository_handle, call_number, media FROM source_reporef WHERE source_handle = ? ORDER BY pos`), src.Handle)
	if err != nil {
		return Source{}, fmt.Errorf("load repo refs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var r RepoRef
		var media int
		if err := rows.Scan(&r.RepositoryHandle, &r.CallNumber, &media); err != nil {
			return Source{}, fmt.Errorf("scan repo ref: %w", err)
		}
		r.Media = SourceMediaType(media)
		src.RepoRefs = append(src.RepoRefs, r)
	}
	if err := rows.Err(); err != nil {
		return Source{}, fmt.Errorf("load repo refs: %w", err)
	}
	return src, nil
}
