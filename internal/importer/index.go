package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dis-maja/swesrc/internal/bookdb"
	"github.com/dis-maja/swesrc/internal/gendb"
)

// RinIndex maps a catalog book id to the gramps id of the source imported
// from it.
type RinIndex map[string]string

// Imported reports the gramps id of the source imported from book id bid.
func (x RinIndex) Imported(bid int) (string, bool) {
	id, ok := x[strconv.Itoa(bid)]
	return id, ok
}

// BuildRinIndex collects the book id attribute of every source.
func BuildRinIndex(sources []gendb.Source) RinIndex {
	index := make(RinIndex)
	for _, src := range sources {
		for _, a := range src.Attributes {
			if a.Type != AttrBookID {
				continue
			}
			index[a.Value] = src.GrampsID
		}
	}
	return index
}

// RebuildRinIndex scans every source in the store.
func RebuildRinIndex(ctx context.Context, store Store) (RinIndex, error) {
	sources, err := store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild rin index: %w", err)
	}
	return BuildRinIndex(sources), nil
}

// RepositoryEntry is a catalog repository joined with the store record
// linked to it, if any.
type RepositoryEntry struct {
	bookdb.RepositoryRow
	// The Linked fields describe the store record and are empty when the
	// repository is not imported.
	LinkedGrampsID string
	LinkedHandle   string
	LinkedType     gendb.RepositoryType
}

// Imported reports whether a store record is linked to the entry.
func (e RepositoryEntry) Imported() bool { return e.LinkedGrampsID != "" }

// CatalogType is the repository type suggested by the catalog, Archive
// when the catalog gives none.
func (e RepositoryEntry) CatalogType() gendb.RepositoryType {
	n, err := strconv.Atoi(strings.TrimSpace(e.Type))
	if err != nil {
		return gendb.RepoArchive
	}
	return gendb.RepositoryType(n)
}

// RepositoryIndex is the catalog repository listing annotated with the
// store records linked to it. The zero value is an empty index.
type RepositoryIndex struct {
	entries []RepositoryEntry
	byRIN   map[string]int
}

// BuildRepositoryIndex joins the catalog listing with the store. A store
// repository is linked to RIN r when one of its URLs is a RIN URL for r
// pointing at bookdbURL. The gramps id column of the catalog listing is
// ignored in favour of the store.
func BuildRepositoryIndex(rows []bookdb.RepositoryRow, repos []gendb.Repository, bookdbURL string) RepositoryIndex {
	index := RepositoryIndex{
		entries: make([]RepositoryEntry, len(rows)),
		byRIN:   make(map[string]int, len(rows)),
	}
	for i, row := range rows {
		index.entries[i] = RepositoryEntry{RepositoryRow: row}
		if _, dup := index.byRIN[row.RIN]; !dup {
			index.byRIN[row.RIN] = i
		}
	}
	for _, repo := range repos {
		for _, u := range repo.URLs {
			rin, ok := LinkedRIN(u, bookdbURL)
			if !ok {
				continue
			}
			i, ok := index.byRIN[rin]
			if !ok {
				continue
			}
			index.entries[i].LinkedGrampsID = repo.GrampsID
			index.entries[i].LinkedHandle = repo.Handle
			index.entries[i].LinkedType = repo.Type
		}
	}
	return index
}

// Entries returns a copy of all entries in catalog order.
func (x RepositoryIndex) Entries() []RepositoryEntry {
	out := make([]RepositoryEntry, len(x.entries))
	copy(out, x.entries)
	return out
}

// Len returns the number of catalog repositories.
func (x RepositoryIndex) Len() int { return len(x.entries) }

// ByRIN finds the entry for a catalog repository id.
func (x RepositoryIndex) ByRIN(rin string) (RepositoryEntry, bool) {
	i, ok := x.byRIN[strings.TrimSpace(rin)]
	if !ok {
		return RepositoryEntry{}, false
	}
	return x.entries[i], true
}

// ByRef finds the first entry carrying the reference system tag ref, such
// as "AD" or "SVAR".
func (x RepositoryIndex) ByRef(ref string) (RepositoryEntry, bool) {
	for _, e := range x.entries {
		if e.Ref == ref {
			return e, true
		}
	}
	return RepositoryEntry{}, false
}
