package gendb

import "slices"

// ChangeKind names a record change signal.
type ChangeKind string

const (
	RepositoryAdded   ChangeKind = "repository-add"
	RepositoryUpdated ChangeKind = "repository-update"
	RepositoryDeleted ChangeKind = "repository-delete"
	SourceAdded       ChangeKind = "source-add"
	SourceUpdated     ChangeKind = "source-update"
	SourceDeleted     ChangeKind = "source-delete"
)

// Change is delivered to subscribers after a transaction commits. Handles
// lists every record of that kind touched by the transaction.
type Change struct {
	Kind    ChangeKind
	Handles []string
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. fn runs on the committing goroutine and must not block
// or start a transaction.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) emit(changes []Change) {
	if len(changes) == 0 {
		return
	}
	s.mu.Lock()
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.logger.Debug("record change", "kind", c.Kind, "count", len(c.Handles))
		for _, fn := range subs {
			fn(c)
		}
	}
}

// coalesce groups pending signals by kind, keeping first-seen order of
// kinds and handles.
func coalesce(pending []Change) []Change {
	var out []Change
	index := make(map[ChangeKind]int)
	for _, p := range pending {
		i, ok := index[p.Kind]
		if !ok {
			index[p.Kind] = len(out)
			out = append(out, Change{Kind: p.Kind})
			i = len(out) - 1
		}
		for _, h := range p.Handles {
			if !slices.Contains(out[i].Handles, h) {
				out[i].Handles = append(out[i].Handles, h)
			}
		}
	}
	return out
}
