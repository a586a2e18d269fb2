package gendb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gramps id prefixes.
const (
	repositoryIDFormat = "R%04d"
	sourceIDFormat     = "S%04d"
)

// Txn is an open write transaction. It is only valid inside the function
// passed to WithTx.
type Txn struct {
	name    string
	tx      *sql.Tx
	store   *Store
	pending []Change
	now     time.Time
}

// Name returns the transaction's description.
func (t *Txn) Name() string { return t.name }

// WithTx runs fn in one transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics. Change
// notifications are emitted only after a successful commit.
//
// While fn runs, the store's own read methods may block on the open
// transaction; read through the Txn instead.
func (s *Store) WithTx(ctx context.Context, name string, fn func(*Txn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}
	txn := &Txn{name: name, tx: tx, store: s, now: time.Now()}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txn); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("rollback failed", "txn", name, "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	s.emit(coalesce(txn.pending))
	return nil
}

// Repository reads a repository inside the transaction.
func (t *Txn) Repository(ctx context.Context, handle string) (Repository, error) {
	return t.store.loadRepository(ctx, t.tx, "handle", handle)
}

// Source reads a source inside the transaction.
func (t *Txn) Source(ctx context.Context, handle string) (Source, error) {
	return t.store.loadSource(ctx, t.tx, "handle", handle)
}

// AddRepository inserts repo, assigning a handle and gramps id when they
// are empty. The assigned values are written back into repo.
func (t *Txn) AddRepository(ctx context.Context, repo *Repository) (string, error) {
	if repo.Handle == "" {
		repo.Handle = newHandle()
	}
	if repo.GrampsID == "" {
		id, err := t.nextGrampsID(ctx, "repository", repositoryIDFormat)
		if err != nil {
			return "", err
		}
		repo.GrampsID = id
	}
	repo.Changed = t.now
	if _, err := t.exec(ctx,
		`INSERT INTO repository (handle, gramps_id, name, type, changed) VALUES (?, ?, ?, ?, ?)`,
		repo.Handle, repo.GrampsID, repo.Name, int(repo.Type), t.now.Unix()); err != nil {
		return "", fmt.Errorf("add repository %q: %w", repo.Name, err)
	}
	if err := t.writeRepositoryChildren(ctx, repo); err != nil {
		return "", err
	}
	t.signal(RepositoryAdded, repo.Handle)
	return repo.Handle, nil
}

// CommitRepository writes back an existing repository.
func (t *Txn) CommitRepository(ctx context.Context, repo *Repository) error {
	repo.Changed = t.now
	res, err := t.exec(ctx,
		`UPDATE repository SET gramps_id = ?, name = ?, type = ?, changed = ? WHERE handle = ?`,
		repo.GrampsID, repo.Name, int(repo.Type), t.now.Unix(), repo.Handle)
	if err != nil {
		return fmt.Errorf("commit repository %s: %w", repo.Handle, err)
	}
	if err := requireRow(res, "repository", repo.Handle); err != nil {
		return err
	}
	if err := t.deleteRepositoryChildren(ctx, repo.Handle); err != nil {
		return err
	}
	if err := t.writeRepositoryChildren(ctx, repo); err != nil {
		return err
	}
	t.signal(RepositoryUpdated, repo.Handle)
	return nil
}

// RemoveRepository deletes a repository. Repository references pointing to
// it are left in place, as they are in the record model.
func (t *Txn) RemoveRepository(ctx context.Context, handle string) error {
	res, err := t.exec(ctx, `DELETE FROM repository WHERE handle = ?`, handle)
	if err != nil {
		return fmt.Errorf("remove repository %s: %w", handle, err)
	}
	if err := requireRow(res, "repository", handle); err != nil {
		return err
	}
	if err := t.deleteRepositoryChildren(ctx, handle); err != nil {
		return err
	}
	t.signal(RepositoryDeleted, handle)
	return nil
}

// AddSource inserts src, assigning a handle and gramps id when empty.
func (t *Txn) AddSource(ctx context.Context, src *Source) (string, error) {
	if src.Handle == "" {
		src.Handle = newHandle()
	}
	if src.GrampsID == "" {
		id, err := t.nextGrampsID(ctx, "source", sourceIDFormat)
		if err != nil {
			return "", err
		}
		src.GrampsID = id
	}
	src.Changed = t.now
	if _, err := t.exec(ctx,
		`INSERT INTO source (handle, gramps_id, title, author, abbrev, changed) VALUES (?, ?, ?, ?, ?, ?)`,
		src.Handle, src.GrampsID, src.Title, src.Author, src.Abbrev, t.now.Unix()); err != nil {
		return "", fmt.Errorf("add source %q: %w", src.Title, err)
	}
	if err := t.writeSourceChildren(ctx, src); err != nil {
		return "", err
	}
	t.signal(SourceAdded, src.Handle)
	return src.Handle, nil
}

// CommitSource writes back an existing source.
func (t *Txn) CommitSource(ctx context.Context, src *Source) error {
	src.Changed = t.now
	res, err := t.exec(ctx,
		`UPDATE source SET gramps_id = ?, title = ?, author = ?, abbrev = ?, changed = ? WHERE handle = ?`,
		src.GrampsID, src.Title, src.Author, src.Abbrev, t.now.Unix(), src.Handle)
	if err != nil {
		return fmt.Errorf("commit source %s: %w", src.Handle, err)
	}
	if err := requireRow(res, "source", src.Handle); err != nil {
		return err
	}
	if err := t.deleteSourceChildren(ctx, src.Handle); err != nil {
		return err
	}
	if err := t.writeSourceChildren(ctx, src); err != nil {
		return err
	}
	t.signal(SourceUpdated, src.Handle)
	return nil
}

// RemoveSource deletes a source with its attributes and references.
func (t *Txn) RemoveSource(ctx context.Context, handle string) error {
	res, err := t.exec(ctx, `DELETE FROM source WHERE handle = ?`, handle)
	if err != nil {
		return fmt.Errorf("remove source %s: %w", handle, err)
	}
	if err := requireRow(res, "source", handle); err != nil {
		return err
	}
	if err := t.deleteSourceChildren(ctx, handle); err != nil {
		return err
	}
	t.signal(SourceDeleted, handle)
	return nil
}

func (t *Txn) writeRepositoryChildren(ctx context.Context, repo *Repository) error {
	for i, a := range repo.Addresses {
		if _, err := t.exec(ctx,
			`INSERT INTO repository_address (repository_handle, pos, street, locality, city, county, state, country, postal_code, phone)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			repo.Handle, i, a.Street, a.Locality, a.City, a.County, a.State, a.Country, a.PostalCode, a.Phone); err != nil {
			return fmt.Errorf("write address: %w", err)
		}
	}
	for i, u := range repo.URLs {
		if _, err := t.exec(ctx,
			`INSERT INTO repository_url (repository_handle, pos, path, description, type) VALUES (?, ?, ?, ?, ?)`,
			repo.Handle, i, u.Path, u.Description, int(u.Type)); err != nil {
			return fmt.Errorf("write url: %w", err)
		}
	}
	return nil
}

func (t *Txn) deleteRepositoryChildren(ctx context.Context, handle string) error {
	if _, err := t.exec(ctx, `DELETE FROM repository_address WHERE repository_handle = ?`, handle); err != nil {
		return fmt.Errorf("delete addresses: %w", err)
	}
	if _, err := t.exec(ctx, `DELETE FROM repository_url WHERE repository_handle = ?`, handle); err != nil {
		return fmt.Errorf("delete urls: %w", err)
	}
	return nil
}

func (t *Txn) writeSourceChildren(ctx context.Context, src *Source) error {
	for i, a := range src.Attributes {
		if _, err := t.exec(ctx,
			`INSERT INTO source_attribute (source_handle, pos, type, value) VALUES (?, ?, ?, ?)`,
			src.Handle, i, a.Type, a.Value); err != nil {
			return fmt.Errorf("write attribute: %w", err)
		}
	}
	for i, r := range src.RepoRefs {
		if strings.TrimSpace(r.RepositoryHandle) == "" {
			return fmt.Errorf("write repo ref %d of %q: empty repository handle", i, src.Title)
		}
		if _, err := t.exec(ctx,
			`INSERT INTO source_reporef (source_handle, pos, repository_handle, call_number, media) VALUES (?, ?, ?, ?, ?)`,
			src.Handle, i, r.RepositoryHandle, r.CallNumber, int(r.Media)); err != nil {
			return fmt.Errorf("write repo ref: %w", err)
		}
	}
	return nil
}

func (t *Txn) deleteSourceChildren(ctx context.Context, handle string) error {
	if _, err := t.exec(ctx, `DELETE FROM source_attribute WHERE source_handle = ?`, handle); err != nil {
		return fmt.Errorf("delete attributes: %w", err)
	}
	if _, err := t.exec(ctx, `DELETE FROM source_reporef WHERE source_handle = ?`, handle); err != nil {
		return fmt.Errorf("delete repo refs: %w", err)
	}
	return nil
}

// nextGrampsID returns the lowest free id of the form format, counting
// from zero.
func (t *Txn) nextGrampsID(ctx context.Context, table, format string) (string, error) {
	ids, err := t.store.handles(ctx, t.tx, `SELECT gramps_id FROM `+table)
	if err != nil {
		return "", fmt.Errorf("next %s id: %w", table, err)
	}
	used := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		used[id] = struct{}{}
	}
	for n := 0; ; n++ {
		id := fmt.Sprintf(format, n)
		if _, taken := used[id]; !taken {
			return id, nil
		}
	}
}

func (t *Txn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.store.dialect.rebind(query), args...)
}

func (t *Txn) signal(kind ChangeKind, handle string) {
	t.pending = append(t.pending, Change{Kind: kind, Handles: []string{handle}})
}

func requireRow(res sql.Result, what, handle string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", what, handle, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, handle, ErrNotFound)
	}
	return nil
}

func newHandle() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
