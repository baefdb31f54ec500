package watcher

import (
	"context"
	"iter"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/zerr"

	"github.com/gz/scfs/internal/core/ports"
)

var _ ports.IndexWatcher = (*Watcher)(nil)

const eventChannelBuffer = 1

// DefaultDebounceWindow is the default time window for coalescing index
// writes. Mirror syncs rewrite the index in many small chunks; the window
// waits for the rewrite to settle.
const DefaultDebounceWindow = 200 * time.Millisecond

// Watcher implements index file watching using fsnotify. The parent
// directory is watched rather than the file itself, because editors and
// mirror tools replace the index by rename, which would drop a watch bound
// to the old inode.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	log       ports.Logger
	window    time.Duration
	target    string
	events    chan ports.IndexEvent
}

// New creates a new index watcher with the given debounce window.
func New(log ports.Logger, window time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create file system watcher")
	}
	return &Watcher{
		fsWatcher: fsWatcher,
		log:       log,
		window:    window,
		events:    make(chan ports.IndexEvent, eventChannelBuffer),
	}, nil
}

// Start begins watching the index file at path.
func (w *Watcher) Start(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to resolve index path"), "path", path)
	}
	w.target = abs

	if err := w.fsWatcher.Add(filepath.Dir(abs)); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to watch index directory"), "path", path)
	}

	go w.processEvents(ctx, path)
	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator of coalesced index change events.
func (w *Watcher) Events() iter.Seq[ports.IndexEvent] {
	return func(yield func(ports.IndexEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

// processEvents filters raw fsnotify events down to the watched index file
// and forwards one coalesced event per settled change burst.
func (w *Watcher) processEvents(ctx context.Context, path string) {
	defer close(w.events)

	// The debouncer's notification only nudges this buffered channel, so a
	// late timer can never race the close of w.events.
	fired := make(chan struct{}, 1)
	debouncer := NewDebouncer(w.window, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-fired:
			select {
			case w.events <- ports.IndexEvent{Path: path}:
			case <-ctx.Done():
				return
			}

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.matches(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debouncer.Add()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file system watch error", "error", err.Error())
		}
	}
}

// matches reports whether an event path refers to the watched index. Only
// the index's own directory is watched, so a base name comparison is exact.
func (w *Watcher) matches(name string) bool {
	return filepath.Base(name) == filepath.Base(w.target)
}
