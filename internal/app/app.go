// Package app implements the application layer: it connects a package
// source to the propagation engine and emits the resulting deltas.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.trai.ch/zerr"

	"github.com/gz/scfs/internal/adapters/facts"
	"github.com/gz/scfs/internal/core/domain"
	"github.com/gz/scfs/internal/core/ports"
	"github.com/gz/scfs/internal/engine/propagation"
)

// App wires the boundary adapters to the engine.
type App struct {
	source  ports.PackageSource
	store   ports.FactStore
	engine  *propagation.Engine
	watcher ports.IndexWatcher
	log     ports.Logger
	out     io.Writer
}

// New creates an App writing delta output to stdout.
func New(source ports.PackageSource, store ports.FactStore, engine *propagation.Engine, watcher ports.IndexWatcher, log ports.Logger) *App {
	return &App{
		source:  source,
		store:   store,
		engine:  engine,
		watcher: watcher,
		log:     log,
		out:     os.Stdout,
	}
}

// SetOutput redirects delta output. Used by tests.
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// Derive loads the package index at indexPath, applies all facts as one
// batch, and prints the resulting delta to the installable set followed by
// the full derived relation.
func (a *App) Derive(ctx context.Context, indexPath string) error {
	if indexPath == "" {
		return domain.ErrNoIndexSpecified
	}

	pkgs, err := a.source.Load(ctx, indexPath)
	if err != nil {
		return zerr.Wrap(err, "failed to load package index")
	}
	a.log.Info("package index loaded", "path", indexPath, "facts", len(pkgs))

	changes := make([]propagation.Change, len(pkgs))
	for i, p := range pkgs {
		changes[i] = propagation.Change{Kind: domain.EventInsert, Pkg: p}
	}

	delta, err := a.engine.ApplyBatch(ctx, changes)
	if err != nil {
		return zerr.Wrap(err, "failed to apply batch")
	}

	a.printDelta(&delta)
	a.printInstalled()
	return nil
}

// Sync reconciles the store against the current index contents: facts gone
// from the index are deleted, new facts are inserted, and facts whose
// content fingerprint moved are replaced. Unlike Derive it works against a
// populated store, so repeated syncs exercise the incremental maintenance
// path rather than a fresh derivation.
func (a *App) Sync(ctx context.Context, indexPath string) error {
	if indexPath == "" {
		return domain.ErrNoIndexSpecified
	}

	pkgs, err := a.source.Load(ctx, indexPath)
	if err != nil {
		return zerr.Wrap(err, "failed to load package index")
	}
	changes := a.diff(pkgs)
	a.log.Info("package index synced", "path", indexPath, "facts", len(pkgs), "changes", len(changes))

	delta, err := a.engine.ApplyBatch(ctx, changes)
	if err != nil {
		return zerr.Wrap(err, "failed to apply batch")
	}

	a.printDelta(&delta)
	a.printInstalled()
	return nil
}

// Watch syncs the index once, then re-syncs on every settled change to the
// index file until the context ends. A sync that fails mid-watch is logged
// and the watch continues; a half-written index is delivered again once the
// writer finishes.
func (a *App) Watch(ctx context.Context, indexPath string) error {
	if indexPath == "" {
		return domain.ErrNoIndexSpecified
	}

	if err := a.Sync(ctx, indexPath); err != nil {
		return err
	}

	if err := a.watcher.Start(ctx, indexPath); err != nil {
		return zerr.Wrap(err, "failed to start index watcher")
	}
	defer func() { _ = a.watcher.Stop() }()

	for range a.watcher.Events() {
		if err := a.Sync(ctx, indexPath); err != nil {
			a.log.Error(err)
		}
	}
	return nil
}

// Remove deletes the facts identified by name=version keys and prints the
// resulting delta.
func (a *App) Remove(ctx context.Context, keys []string) error {
	changes := make([]propagation.Change, 0, len(keys))
	for _, k := range keys {
		key, err := parseKey(k)
		if err != nil {
			return err
		}
		changes = append(changes, propagation.Change{
			Kind: domain.EventDelete,
			Pkg:  domain.Package{Name: key.Name, Version: key.Version},
		})
	}

	delta, err := a.engine.ApplyBatch(ctx, changes)
	if err != nil {
		return zerr.Wrap(err, "failed to apply batch")
	}

	a.printDelta(&delta)
	return nil
}

// diff computes the change batch that moves the store to the given index
// contents. Deletes come first so a replaced fact frees its key for the
// matching insert later in the batch.
func (a *App) diff(pkgs []domain.Package) []propagation.Change {
	fresh := make(map[domain.PackageKey]int, len(pkgs))
	for i := range pkgs {
		fresh[pkgs[i].Key()] = i
	}

	var deletes, inserts []propagation.Change
	for p := range a.store.All() {
		key := p.Key()
		if i, ok := fresh[key]; ok {
			if facts.Fingerprint(&pkgs[i]) == facts.Fingerprint(&p) {
				delete(fresh, key)
				continue
			}
		}
		deletes = append(deletes, propagation.Change{
			Kind: domain.EventDelete,
			Pkg:  domain.Package{Name: key.Name, Version: key.Version},
		})
	}
	for _, i := range fresh {
		inserts = append(inserts, propagation.Change{Kind: domain.EventInsert, Pkg: pkgs[i]})
	}
	return append(deletes, inserts...)
}

func (a *App) printDelta(delta *propagation.Delta) {
	for _, p := range delta.Added {
		fmt.Fprintf(a.out, "+ %s %s\n", p.Name.String(), p.Version.String())
	}
	for _, p := range delta.Removed {
		fmt.Fprintf(a.out, "- %s %s\n", p.Name.String(), p.Version.String())
	}
}

func (a *App) printInstalled() {
	installed := a.engine.Installed()
	fmt.Fprintf(a.out, "installable: %d\n", len(installed))
}

func parseKey(s string) (domain.PackageKey, error) {
	name, version, found := strings.Cut(s, "=")
	if !found || name == "" || version == "" {
		return domain.PackageKey{}, zerr.With(domain.ErrInvalidPackage, "key", s)
	}
	return domain.PackageKey{
		Name:    domain.NewInternedString(name),
		Version: domain.NewInternedString(version),
	}, nil
}
