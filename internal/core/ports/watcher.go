package ports

import (
	"context"
	"iter"
)

// IndexEvent signals that a watched package index changed on disk.
type IndexEvent struct {
	// Path is the index path as given to Start.
	Path string
}

// IndexWatcher watches a package index file for changes. Implementations
// coalesce bursts of writes into single events, so one event per settled
// rewrite reaches the consumer.
type IndexWatcher interface {
	// Start begins watching the index file at path.
	Start(ctx context.Context, path string) error
	// Stop stops the watcher and releases all resources.
	Stop() error
	// Events returns an iterator of coalesced index change events. The
	// iterator ends when the watcher stops or the Start context is done.
	Events() iter.Seq[IndexEvent]
}
