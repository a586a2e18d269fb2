package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dis-maja/swesrc/internal/bookdb"
	"github.com/dis-maja/swesrc/internal/gendb"
)

// Reference system tags of the repositories holding digitized copies.
const (
	RefNAD = "SVAR"
	RefAD  = "AD"
)

// ErrAlreadyImported is returned when the selected book or repository is
// already present in the store.
var ErrAlreadyImported = errors.New("already imported")

// MappingError reports a catalog repository that must be imported before
// the current record can be created.
type MappingError struct {
	// Key is the RIN or reference tag that was looked up.
	Key string
	// Name is the catalog name of the missing repository, if known.
	Name string
}

func (e *MappingError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("bookDB repository missing: %s", e.Key)
	}
	return fmt.Sprintf("bookDB repository missing: %s (%s)", e.Name, e.Key)
}

// Store is the part of the record store the importer writes to.
type Store interface {
	Repositories(ctx context.Context) ([]gendb.Repository, error)
	Sources(ctx context.Context) ([]gendb.Source, error)
	WithTx(ctx context.Context, name string, fn func(*gendb.Txn) error) error
}

var _ Store = (*gendb.Store)(nil)

// Behavior holds the import toggles.
type Behavior struct {
	RepoI8n         bool
	SourCountry     bool
	SourI8n         bool
	SourAvoidSignum bool
}

// txnName labels every import transaction.
const txnName = "SwedishSources"

// Importer turns catalog records into store records.
type Importer struct {
	catalog bookdb.Catalog
	store   Store
	logger  *log.Logger

	mu       sync.RWMutex
	behavior Behavior
}

// New builds an Importer. A nil logger discards output.
func New(catalog bookdb.Catalog, store Store, behavior Behavior, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Importer{catalog: catalog, store: store, behavior: behavior, logger: logger}
}

// SetBehavior replaces the import toggles. Imports already running keep
// the toggles they started with.
func (im *Importer) SetBehavior(b Behavior) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.behavior = b
}

// Behavior returns the current import toggles.
func (im *Importer) Behavior() Behavior {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.behavior
}

// RepositoryIndex queries the catalog listing and joins it with the store.
func (im *Importer) RepositoryIndex(ctx context.Context) (RepositoryIndex, error) {
	rows, err := im.catalog.Repositories(ctx)
	if err != nil {
		return RepositoryIndex{}, fmt.Errorf("list repositories: %w", err)
	}
	repos, err := im.store.Repositories(ctx)
	if err != nil {
		return RepositoryIndex{}, fmt.Errorf("read repositories: %w", err)
	}
	return BuildRepositoryIndex(rows, repos, im.catalog.URL()), nil
}

// RebuildRinIndex scans the store for imported books.
func (im *Importer) RebuildRinIndex(ctx context.Context) (RinIndex, error) {
	return RebuildRinIndex(ctx, im.store)
}

// DraftRepository builds, without saving, the repository for catalog
// record rin.
func (im *Importer) DraftRepository(ctx context.Context, rin string) (gendb.Repository, error) {
	index, err := im.RepositoryIndex(ctx)
	if err != nil {
		return gendb.Repository{}, err
	}
	return im.draftRepository(ctx, index, rin)
}

func (im *Importer) draftRepository(ctx context.Context, index RepositoryIndex, rin string) (gendb.Repository, error) {
	info, err := im.catalog.Repository(ctx, rin)
	if err != nil {
		return gendb.Repository{}, fmt.Errorf("query repository %s: %w", rin, err)
	}

	entry, known := index.ByRIN(rin)
	repo := gendb.Repository{Type: gendb.RepoArchive}
	if known {
		repo.Type = entry.CatalogType()
		repo.Name = entry.Name
	}
	repo.URLs = append(repo.URLs, RINURL(im.catalog.URL(), rin))

	inter := im.Behavior().RepoI8n
	addr := gendb.Address{Country: countryLocal}
	if inter {
		addr.Country = countryInternational
	}
	var rows []AddressRow
	for _, row := range info {
		switch row.Type {
		case bookdb.InfoName:
			repo.Name = row.Info
		case bookdb.InfoEmail:
			repo.URLs = append(repo.URLs, gendb.URL{Path: row.Info, Type: gendb.URLEmail})
		case bookdb.InfoWeb:
			repo.URLs = append(repo.URLs, gendb.URL{Path: row.Info, Type: gendb.URLWebHome})
		case bookdb.InfoPhone:
			if inter {
				addr.Phone = row.Info
			} else {
				addr.Phone = StripCountryCode(row.Info)
			}
		case bookdb.InfoAddress:
			rows = append(rows, AddressRow{Key: row.Row, Value: row.Info})
		}
	}
	parts := DecomposeAddress(rows, inter)
	addr.Street, addr.Locality = parts.Street, parts.Locality
	addr.City, addr.PostalCode = parts.City, parts.PostalCode
	repo.Addresses = []gendb.Address{addr}
	return repo, nil
}

// AddRepository imports catalog repository rin in one transaction.
func (im *Importer) AddRepository(ctx context.Context, rin string) (gendb.Repository, error) {
	index, err := im.RepositoryIndex(ctx)
	if err != nil {
		return gendb.Repository{}, err
	}
	if entry, ok := index.ByRIN(rin); ok && entry.Imported() {
		return gendb.Repository{}, fmt.Errorf("repository %s is %s: %w", rin, entry.LinkedGrampsID, ErrAlreadyImported)
	}
	repo, err := im.draftRepository(ctx, index, rin)
	if err != nil {
		return gendb.Repository{}, err
	}
	err = im.store.WithTx(ctx, txnName, func(txn *gendb.Txn) error {
		_, err := txn.AddRepository(ctx, &repo)
		return err
	})
	if err != nil {
		im.logger.Error("repository import failed", "rin", rin, "error", err)
		return gendb.Repository{}, fmt.Errorf("add repository %s: %w", rin, err)
	}
	im.logger.Info("repository imported", "rin", rin, "gramps_id", repo.GrampsID, "name", repo.Name)
	return repo, nil
}

// ChurchBook selects a church book: the county it is listed under, its
// archive and the book itself.
type ChurchBook struct {
	CountyID  int
	ArchiveID int
	BookID    int
}

// SCBBook selects an SCB extract book listed under a county.
type SCBBook struct {
	CountyID int
	BookID   int
}

// DraftChurchBook builds, without saving, the source for a church book.
func (im *Importer) DraftChurchBook(ctx context.Context, sel ChurchBook) (gendb.Source, error) {
	county, err := im.countyName(ctx, sel.CountyID)
	if err != nil {
		return gendb.Source{}, err
	}
	archive, err := im.catalog.Archive(ctx, sel.ArchiveID)
	if err != nil {
		return gendb.Source{}, fmt.Errorf("query archive %d: %w", sel.ArchiveID, err)
	}
	book, err := im.catalog.Book(ctx, sel.BookID)
	if err != nil {
		return gendb.Source{}, fmt.Errorf("query book %d: %w", sel.BookID, err)
	}
	types, err := im.catalog.BookTypes(ctx, sel.ArchiveID)
	if err != nil {
		return gendb.Source{}, fmt.Errorf("query book types %d: %w", sel.ArchiveID, err)
	}
	books, err := im.catalog.Books(ctx, sel.ArchiveID)
	if err != nil {
		return gendb.Source{}, fmt.Errorf("query books %d: %w", sel.ArchiveID, err)
	}
	listed, ok := findBook(books, sel.BookID)
	if !ok {
		return gendb.Source{}, fmt.Errorf("book %d is not listed in archive %d", sel.BookID, sel.ArchiveID)
	}

	behavior := im.Behavior()
	withSignum := !behavior.SourAvoidSignum
	prefix := TitlePrefix(county, behavior.SourCountry, behavior.SourI8n)
	label := BookLabel(types.Name(BookTypeID(listed)), listed.Period, listed.Signum, withSignum)
	title := prefix + archive.Name + ", " + label

	src := gendb.Source{
		Title:      title,
		Abbrev:     title,
		Author:     prefix + archive.Author,
		Attributes: []gendb.SrcAttribute{{Type: AttrBookID, Value: strconv.Itoa(sel.BookID)}},
	}
	refs, err := im.repoRefs(ctx, archive, book)
	if err != nil {
		return gendb.Source{}, err
	}
	src.RepoRefs = refs
	return src, nil
}

// DraftSCBBook builds, without saving, the source for an SCB extract book.
func (im *Importer) DraftSCBBook(ctx context.Context, sel SCBBook) (gendb.Source, error) {
	county, err := im.countyName(ctx, sel.CountyID)
	if err != nil {
		return gendb.Source{}, err
	}
	archive, err := im.catalog.SCBArchive(ctx)
	if err != nil {
		return gendb.Source{}, fmt.Errorf("query scb archive: %w", err)
	}
	book, err := im.catalog.Book(ctx, sel.BookID)
	if err != nil {
		return gendb.Source{}, fmt.Errorf("query book %d: %w", sel.BookID, err)
	}
	types, err := im.catalog.SCBBookTypes(ctx)
	if err != nil {
		return gendb.Source{}, fmt.Errorf("query scb book types: %w", err)
	}

	behavior := im.Behavior()
	prefix := TitlePrefix(county, behavior.SourCountry, behavior.SourI8n)
	title := prefix + types.Name(book.RealTypeID) + ", " + book.Period
	if !behavior.SourAvoidSignum {
		title += " (" + book.Signum + ")"
	}

	src := gendb.Source{
		Title:      title,
		Abbrev:     title,
		Author:     archive.Author,
		Attributes: []gendb.SrcAttribute{{Type: AttrBookID, Value: strconv.Itoa(sel.BookID)}},
	}
	refs, err := im.repoRefs(ctx, archive, book)
	if err != nil {
		return gendb.Source{}, err
	}
	src.RepoRefs = refs
	return src, nil
}

// AddChurchBook imports a church book as a source in one transaction.
func (im *Importer) AddChurchBook(ctx context.Context, sel ChurchBook) (gendb.Source, error) {
	return im.addSource(ctx, sel.BookID, func() (gendb.Source, error) {
		return im.DraftChurchBook(ctx, sel)
	})
}

// AddSCBBook imports an SCB extract book as a source in one transaction.
func (im *Importer) AddSCBBook(ctx context.Context, sel SCBBook) (gendb.Source, error) {
	return im.addSource(ctx, sel.BookID, func() (gendb.Source, error) {
		return im.DraftSCBBook(ctx, sel)
	})
}

func (im *Importer) addSource(ctx context.Context, bid int, draft func() (gendb.Source, error)) (gendb.Source, error) {
	rins, err := im.RebuildRinIndex(ctx)
	if err != nil {
		return gendb.Source{}, err
	}
	if id, ok := rins.Imported(bid); ok {
		return gendb.Source{}, fmt.Errorf("book %d is %s: %w", bid, id, ErrAlreadyImported)
	}

	src, err := draft()
	if err != nil {
		var merr *MappingError
		if errors.As(err, &merr) {
			im.logger.Warn("source import aborted", "book", bid, "missing", merr.Key)
		}
		return gendb.Source{}, err
	}

	err = im.store.WithTx(ctx, txnName, func(txn *gendb.Txn) error {
		_, err := txn.AddSource(ctx, &src)
		return err
	})
	if err != nil {
		im.logger.Error("source import failed", "book", bid, "error", err)
		return gendb.Source{}, fmt.Errorf("add source for book %d: %w", bid, err)
	}
	im.logger.Info("source imported", "book", bid, "gramps_id", src.GrampsID, "title", src.Title)
	return src, nil
}

// repoRefs assembles the repository references of a book: the holding
// archive, then NAD references, then the AD reference. A missing
// repository aborts with a *MappingError.
func (im *Importer) repoRefs(ctx context.Context, archive bookdb.ArchiveInfo, book bookdb.BookInfo) ([]gendb.RepoRef, error) {
	index, err := im.RepositoryIndex(ctx)
	if err != nil {
		return nil, err
	}

	primary, err := linked(index.ByRIN(archive.RepositoryID))
	if err != nil {
		return nil, withKey(err, archive.RepositoryID)
	}
	refs := []gendb.RepoRef{{
		RepositoryHandle: primary.LinkedHandle,
		CallNumber:       primaryCallNumber(archive, book),
		Media:            gendb.MediaBook,
	}}

	if book.HasNAD() {
		nad, err := linked(index.ByRef(RefNAD))
		if err != nil {
			return nil, withKey(err, RefNAD)
		}
		bookRefs, err := im.catalog.BookRefs(ctx, book.NADBookID)
		if err != nil {
			return nil, fmt.Errorf("query book refs %s: %w", book.NADBookID, err)
		}
		refs = append(refs, nadRepoRefs(bookRefs, nad.LinkedHandle, book.NADChecksum)...)
	}

	if book.HasAD() {
		ad, err := linked(index.ByRef(RefAD))
		if err != nil {
			return nil, withKey(err, RefAD)
		}
		refs = append(refs, gendb.RepoRef{
			RepositoryHandle: ad.LinkedHandle,
			CallNumber:       adCallNumber(book.ADVolume, book.ADChecksum),
			Media:            gendb.MediaElectronic,
		})
	}
	return refs, nil
}

func linked(entry RepositoryEntry, ok bool) (RepositoryEntry, error) {
	if !ok || !entry.Imported() || entry.LinkedHandle == "" {
		return RepositoryEntry{}, &MappingError{Name: entry.Name}
	}
	return entry, nil
}

func withKey(err error, key string) error {
	var merr *MappingError
	if errors.As(err, &merr) {
		merr.Key = key
	}
	return err
}

func (im *Importer) countyName(ctx context.Context, cid int) (string, error) {
	counties, err := im.catalog.Counties(ctx)
	if err != nil {
		return "", fmt.Errorf("list counties: %w", err)
	}
	for _, c := range counties {
		if c.ID == cid {
			return c.Name, nil
		}
	}
	return "", fmt.Errorf("county %d not found", cid)
}

func findBook(books []bookdb.Book, bid int) (bookdb.Book, bool) {
	for _, b := range books {
		if b.ID == bid {
			return b, true
		}
	}
	return bookdb.Book{}, false
}
