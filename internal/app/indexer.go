package app

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dis-maja/swesrc/internal/gendb"
	"github.com/dis-maja/swesrc/internal/importer"
	"github.com/dis-maja/swesrc/internal/state"
)

const (
	defaultRetryInterval = 2 * time.Second
	maxBackoff           = 30 * time.Second
)

// IndexSource is what the indexer rebuilds from.
type IndexSource interface {
	RepositoryIndex(ctx context.Context) (importer.RepositoryIndex, error)
	RebuildRinIndex(ctx context.Context) (importer.RinIndex, error)
}

// Notifier delivers record store change notifications.
type Notifier interface {
	Subscribe(fn func(gendb.Change)) (unsubscribe func())
}

// Indexer rebuilds the import indexes into a state.Store after every
// record store change. It is the only writer of the store.
type Indexer struct {
	store   *state.Store
	source  IndexSource
	logger  *log.Logger
	retry   time.Duration
	trigger chan struct{}
}

// NewIndexer creates an indexer. A non-positive retry uses the default.
func NewIndexer(store *state.Store, source IndexSource, retry time.Duration, logger *log.Logger) *Indexer {
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Indexer{
		store:   store,
		source:  source,
		logger:  logger,
		retry:   retry,
		trigger: make(chan struct{}, 1),
	}
}

// Trigger requests a rebuild. Requests made while one is pending are
// coalesced.
func (ix *Indexer) Trigger() {
	select {
	case ix.trigger <- struct{}{}:
	default:
	}
}

// Start subscribes to notifier and launches the rebuild goroutine. It
// returns immediately; the goroutine stops when ctx is cancelled.
func (ix *Indexer) Start(ctx context.Context, notifier Notifier) {
	var unsubscribe func()
	if notifier != nil {
		unsubscribe = notifier.Subscribe(func(gendb.Change) { ix.Trigger() })
	}
	ix.Trigger()
	go func() {
		if unsubscribe != nil {
			defer unsubscribe()
		}
		ix.loop(ctx)
	}()
}

func (ix *Indexer) loop(ctx context.Context) {
	failures := 0
	var retry <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ix.trigger:
		case <-retry:
		}
		if ix.Refresh(ctx) {
			failures = 0
			retry = nil
			continue
		}
		failures++
		retry = time.After(calculateBackoff(failures, ix.retry))
	}
}

// Refresh rebuilds both indexes once and reports whether it succeeded.
func (ix *Indexer) Refresh(ctx context.Context) bool {
	rins, err := ix.source.RebuildRinIndex(ctx)
	if err == nil {
		var repos importer.RepositoryIndex
		repos, err = ix.source.RepositoryIndex(ctx)
		if err == nil {
			ix.store.Update(repos, rins, nil)
			ix.logger.Debug("indexes rebuilt", "repositories", repos.Len(), "sources", len(rins))
			return true
		}
	}
	if ix.store.Snapshot().ConsecutiveFailures == 0 {
		ix.logger.Warn("index rebuild failed", "error", err)
	}
	ix.store.Update(importer.RepositoryIndex{}, nil, err)
	return false
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
