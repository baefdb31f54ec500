// Package watcher implements file system watching for the package index.
package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid file system events into a single notification.
// Package index rewrites arrive as many small writes; the notification only
// fires once the writes have settled for a full window.
type Debouncer struct {
	mu     sync.Mutex
	dirty  bool
	timer  *time.Timer
	window time.Duration
	notify func()
}

// NewDebouncer creates a debouncer with the given time window and
// notification callback.
func NewDebouncer(window time.Duration, notify func()) *Debouncer {
	return &Debouncer{
		window: window,
		notify: notify,
	}
}

// Add records an event and restarts the debounce window.
func (d *Debouncer) Add() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dirty = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// fire is called when the debounce window expires.
func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.dirty {
		d.timer = nil
		d.mu.Unlock()
		return
	}
	d.dirty = false
	d.timer = nil
	d.mu.Unlock()

	if d.notify != nil {
		d.notify()
	}
}

// Stop cancels any pending notification.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.dirty = false
}
