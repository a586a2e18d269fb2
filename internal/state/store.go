package state

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/dis-maja/swesrc/internal/importer"
)

// Snapshot is the latest index data available to the UI.
type Snapshot struct {
	Repositories        importer.RepositoryIndex
	Rins                importer.RinIndex
	HasIndex            bool
	Generation          uint64 // bumped on every successful update
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline reports whether the catalog has been unreachable for several
// rebuilds in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent access to the snapshot. The indexer is its
// only writer.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored indexes. When err is non-nil the previous data
// is kept and the error is recorded.
func (s *Store) Update(repos importer.RepositoryIndex, rins importer.RinIndex, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Repositories = repos
	s.snapshot.Rins = maps.Clone(rins)
	s.snapshot.HasIndex = true
	s.snapshot.Generation++
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Rins = maps.Clone(s.snapshot.Rins)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
