// Package propagation maintains the derived installable set incrementally
// as batches of fact insertions and deletions are applied to the store.
package propagation

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"github.com/gz/scfs/internal/adapters/config"
	"github.com/gz/scfs/internal/core/domain"
	"github.com/gz/scfs/internal/core/ports"
	"github.com/gz/scfs/internal/engine/resolver"
)

// Change is one entry of a mutation batch. For deletes only the key fields
// of Pkg are consulted.
type Change struct {
	Kind domain.EventKind
	Pkg  domain.Package
}

// Delta describes how the installable set moved as the result of one batch:
// full package records added to and removed from the derived relation, both
// sorted by key. Faults carries the non-fatal errors met during evaluation
// (malformed versions, exhausted depth budgets); they are also logged, never
// silently dropped.
type Delta struct {
	Added   []domain.Package
	Removed []domain.Package
	Faults  []error
}

// Empty reports whether the delta carries no membership changes.
func (d *Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Engine owns the derived installable set. It applies batches under a
// single-writer lock, re-evaluating only the neighborhood reachable over
// reverse dependency edges from the changed names, to fixpoint or the
// configured depth bound. Concurrent readers observe either the pre-batch
// or the post-batch state.
type Engine struct {
	mu       sync.RWMutex
	store    ports.FactStore
	resolver *resolver.Resolver
	log      ports.Logger
	cfg      config.Config

	// reverse maps a package name to the keys of all packages that name it
	// in some dependency alternative.
	reverse map[domain.InternedString]map[domain.PackageKey]struct{}

	// installed is the last-computed membership flag per fact. The full
	// records stay in the store; the engine owns only the flags.
	installed map[domain.PackageKey]bool

	lastSeq uint64
}

// New creates an Engine over the given store.
func New(store ports.FactStore, res *resolver.Resolver, log ports.Logger, cfg config.Config) *Engine {
	return &Engine{
		store:     store,
		resolver:  res,
		log:       log,
		cfg:       cfg,
		reverse:   make(map[domain.InternedString]map[domain.PackageKey]struct{}),
		installed: make(map[domain.PackageKey]bool),
		lastSeq:   store.LastSeq(),
	}
}

// ApplyBatch validates and applies an ordered batch of changes, then emits
// the delta to the installable set. The batch is atomic: on a duplicate key,
// a structural constraint error, or (under the fail policy) a delete of an
// absent key, the store is left unchanged and the delta is empty.
func (e *Engine) ApplyBatch(ctx context.Context, changes []Change) (Delta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Delta{}, err
	}

	skip, err := e.validateBatch(changes)
	if err != nil {
		return Delta{}, err
	}

	removedRecords, err := e.applyChanges(changes, skip)
	if err != nil {
		return Delta{}, err
	}

	delta := e.propagate(removedRecords)
	e.report(&delta)
	return delta, nil
}

// validateBatch walks the batch in order against an overlay of the store's
// key set, so that a delete earlier in the batch frees its key for a later
// insert. It returns the indexes of deletes to skip under the warn policy.
func (e *Engine) validateBatch(changes []Change) (map[int]struct{}, error) {
	overlay := make(map[domain.PackageKey]bool)
	present := func(key domain.PackageKey) bool {
		if v, ok := overlay[key]; ok {
			return v
		}
		_, ok := e.store.Lookup(key)
		return ok
	}

	skip := make(map[int]struct{})
	for i := range changes {
		ch := &changes[i]
		key := ch.Pkg.Key()
		switch ch.Kind {
		case domain.EventInsert:
			if err := ch.Pkg.Validate(); err != nil {
				return nil, zerr.With(err, "batch_index", i)
			}
			if present(key) {
				return nil, zerr.With(zerr.With(domain.ErrDuplicatePackage, "key", key.String()), "batch_index", i)
			}
			overlay[key] = true
		case domain.EventDelete:
			if !present(key) {
				if e.cfg.MissingDelete == config.MissingDeleteFail {
					return nil, zerr.With(zerr.With(domain.ErrPackageNotFound, "key", key.String()), "batch_index", i)
				}
				skip[i] = struct{}{}
				continue
			}
			overlay[key] = false
		}
	}
	return skip, nil
}

// applyChanges performs the validated mutations and captures the records of
// deleted facts, which are needed for removal deltas after they leave the
// store.
func (e *Engine) applyChanges(changes []Change, skip map[int]struct{}) (map[domain.PackageKey]domain.Package, error) {
	removed := make(map[domain.PackageKey]domain.Package)
	for i := range changes {
		ch := &changes[i]
		key := ch.Pkg.Key()
		if _, skipped := skip[i]; skipped {
			e.log.Warn("delete of absent key skipped", "key", key.String())
			continue
		}
		switch ch.Kind {
		case domain.EventInsert:
			if err := e.store.Insert(ch.Pkg); err != nil {
				// Validation makes this unreachable; surface it rather
				// than guessing at recovery.
				return nil, zerr.Wrap(err, "store rejected validated insert")
			}
		case domain.EventDelete:
			rec, _ := e.store.Lookup(key)
			if err := e.store.Delete(key); err != nil {
				return nil, zerr.Wrap(err, "store rejected validated delete")
			}
			removed[key] = rec
		}
	}
	return removed, nil
}

// propagate consumes the event log since the last batch, updates the
// reverse index, and re-evaluates the affected neighborhood until no
// membership flag changes or the depth bound runs out.
func (e *Engine) propagate(removedRecords map[domain.PackageKey]domain.Package) Delta {
	events := e.store.Events(e.lastSeq)
	e.lastSeq = e.store.LastSeq()

	var delta Delta
	addedKeys := make(map[domain.PackageKey]struct{})

	dirtyNames := make(map[domain.InternedString]struct{})
	for _, ev := range events {
		dirtyNames[ev.Key.Name] = struct{}{}

		switch ev.Kind {
		case domain.EventInsert:
			if p, ok := e.store.Lookup(ev.Key); ok {
				e.addReverseEdges(&p)
			}
		case domain.EventDelete:
			if rec, ok := removedRecords[ev.Key]; ok {
				e.removeReverseEdges(&rec)
			}
			// A deleted fact that was installable leaves the derived
			// relation immediately.
			if e.installed[ev.Key] {
				delta.Removed = append(delta.Removed, removedRecords[ev.Key])
			}
			delete(e.installed, ev.Key)
		}
	}

	// Seed the worklist: every current version of a dirty name, plus every
	// package that names one in a dependency alternative. Dependents are
	// re-checked, not assumed unsatisfied; another version or alternative
	// may still satisfy them.
	pending := make(map[domain.PackageKey]struct{})
	for name := range dirtyNames {
		for _, p := range e.store.ByName(name) {
			pending[p.Key()] = struct{}{}
		}
		for dep := range e.reverse[name] {
			pending[dep] = struct{}{}
		}
	}

	depth := 0
	for len(pending) > 0 {
		if e.cfg.MaxDepth > 0 && depth >= e.cfg.MaxDepth {
			e.abandonPending(pending, &delta, addedKeys)
			break
		}

		eval := e.resolver.NewEvaluation(e.store)
		next := make(map[domain.PackageKey]struct{})
		for key := range pending {
			p, ok := e.store.Lookup(key)
			if !ok {
				continue
			}
			now := eval.Installable(&p)
			was, tracked := e.installed[key]
			e.installed[key] = now

			changed := (tracked && was != now) || (!tracked && now)
			if !changed {
				continue
			}
			if now {
				delta.Added = append(delta.Added, p)
				addedKeys[key] = struct{}{}
			} else {
				delta.Removed = append(delta.Removed, p)
			}
			for dep := range e.reverse[key.Name] {
				if dep != key {
					next[dep] = struct{}{}
				}
			}
		}
		delta.Faults = append(delta.Faults, eval.Faults()...)
		pending = next
		depth++
	}

	sortByKey(delta.Added)
	sortByKey(delta.Removed)
	return delta
}

// abandonPending is the conservative exit when the propagation depth bound
// is hit before a fixpoint: everything still pending is treated as not
// installable, and the budget breach is surfaced as a warning, never a
// silent success.
func (e *Engine) abandonPending(pending map[domain.PackageKey]struct{}, delta *Delta, addedKeys map[domain.PackageKey]struct{}) {
	for key := range pending {
		if !e.installed[key] {
			continue
		}
		e.installed[key] = false
		if _, justAdded := addedKeys[key]; justAdded {
			// Flipped within this same batch; drop it from Added instead
			// of reporting both directions.
			delta.Added = slices.DeleteFunc(delta.Added, func(p domain.Package) bool {
				return p.Key() == key
			})
			delete(addedKeys, key)
			continue
		}
		if p, ok := e.store.Lookup(key); ok {
			delta.Removed = append(delta.Removed, p)
		}
	}
	err := zerr.With(domain.ErrCycleBudget, "max_depth", e.cfg.MaxDepth)
	delta.Faults = append(delta.Faults, err)
}

// Recompute re-derives the installable set from scratch and returns the
// delta against the previous state. This is the documented O(total facts)
// fallback; the work is sharded across the configured parallelism, each
// worker running its own evaluation pass.
func (e *Engine) Recompute(ctx context.Context) (Delta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := make([]domain.Package, 0, e.store.Len())
	for p := range e.store.All() {
		snapshot = append(snapshot, p)
	}

	workers := e.cfg.Parallelism
	if workers > len(snapshot) {
		workers = max(len(snapshot), 1)
	}

	results := make([]map[domain.PackageKey]bool, workers)
	faults := make([][]error, workers)

	g, ctx := errgroup.WithContext(ctx)
	chunk := (len(snapshot) + workers - 1) / workers
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, len(snapshot))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			eval := e.resolver.NewEvaluation(e.store)
			res := make(map[domain.PackageKey]bool, hi-lo)
			for i := lo; i < hi; i++ {
				res[snapshot[i].Key()] = eval.Installable(&snapshot[i])
			}
			results[w] = res
			faults[w] = eval.Faults()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Delta{}, err
	}

	var delta Delta
	fresh := make(map[domain.PackageKey]bool, len(snapshot))
	for _, res := range results {
		for key, now := range res {
			fresh[key] = now
		}
	}
	for i := range snapshot {
		key := snapshot[i].Key()
		was := e.installed[key]
		if fresh[key] && !was {
			delta.Added = append(delta.Added, snapshot[i])
		} else if !fresh[key] && was {
			delta.Removed = append(delta.Removed, snapshot[i])
		}
	}
	for _, fs := range faults {
		delta.Faults = append(delta.Faults, fs...)
	}

	e.installed = fresh
	e.rebuildReverse(snapshot)
	e.lastSeq = e.store.LastSeq()

	sortByKey(delta.Added)
	sortByKey(delta.Removed)
	e.report(&delta)
	return delta, nil
}

// Installed returns the current derived relation, sorted by key.
func (e *Engine) Installed() []domain.Package {
	e.mu.RLock()
	defer e.mu.RUnlock()

	res := make([]domain.Package, 0, len(e.installed))
	for key, ok := range e.installed {
		if !ok {
			continue
		}
		if p, found := e.store.Lookup(key); found {
			res = append(res, p)
		}
	}
	sortByKey(res)
	return res
}

// IsInstalled reports the membership flag for one key.
func (e *Engine) IsInstalled(key domain.PackageKey) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.installed[key]
}

func (e *Engine) addReverseEdges(p *domain.Package) {
	for _, dep := range p.Depends {
		for _, alt := range dep.Alternatives {
			deps, ok := e.reverse[alt.Name]
			if !ok {
				deps = make(map[domain.PackageKey]struct{})
				e.reverse[alt.Name] = deps
			}
			deps[p.Key()] = struct{}{}
		}
	}
}

func (e *Engine) removeReverseEdges(p *domain.Package) {
	for _, dep := range p.Depends {
		for _, alt := range dep.Alternatives {
			if deps := e.reverse[alt.Name]; deps != nil {
				delete(deps, p.Key())
				if len(deps) == 0 {
					delete(e.reverse, alt.Name)
				}
			}
		}
	}
}

func (e *Engine) rebuildReverse(snapshot []domain.Package) {
	e.reverse = make(map[domain.InternedString]map[domain.PackageKey]struct{})
	for i := range snapshot {
		e.addReverseEdges(&snapshot[i])
	}
}

func (e *Engine) report(delta *Delta) {
	for _, err := range delta.Faults {
		e.log.Warn("evaluation fault", "error", err.Error())
	}
	e.log.Info("installable set updated",
		"added", len(delta.Added),
		"removed", len(delta.Removed),
		"facts", e.store.Len(),
	)
}

func sortByKey(pkgs []domain.Package) {
	slices.SortFunc(pkgs, func(a, b domain.Package) int {
		return strings.Compare(a.Key().String(), b.Key().String())
	})
}
