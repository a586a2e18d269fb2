// Package state shares the import indexes between the background indexer
// and the UI.
//
// The indexer rebuilds two indexes whenever the record store changes: the
// repository index (catalog repositories joined with imported repository
// records) and the RIN index (catalog book id to source gramps id). It
// publishes them with Update; the UI reads them with Snapshot on every
// tick.
//
// Update with an error keeps the previous indexes and only records the
// error, so the UI can keep showing the last good lists while reporting
// that the catalog is unreachable:
//
//	store.Update(repos, rins, nil) // replace, clear error, bump Generation
//	store.Update(RepositoryIndex{}, nil, err) // keep data, record err
//
// Snapshot copies the RIN map and the error so callers never share mutable
// state with the writer. The repository index is immutable once built and
// is shared as is.
//
// The zero Store is ready to use.
package state
