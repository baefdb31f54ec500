// Package resolver evaluates dependency satisfaction and installability of
// package facts against a fact store.
package resolver

import (
	"math"

	"go.trai.ch/zerr"

	"github.com/gz/scfs/internal/core/domain"
	"github.com/gz/scfs/internal/core/ports"
)

// Resolver holds the evaluation policy. It is stateless across evaluations;
// per-pass state lives in an Evaluation.
type Resolver struct {
	transitive bool
	maxDepth   int
}

// New creates a Resolver. With transitive set, an alternative only satisfies
// a clause if the package providing it is itself installable. maxDepth
// bounds the recursion; zero means unbounded (the cycle guard still
// terminates it).
func New(transitive bool, maxDepth int) *Resolver {
	return &Resolver{transitive: transitive, maxDepth: maxDepth}
}

// noOpen marks a result that did not consume any provisional answer from a
// node still on the recursion path. Only such results are final.
const noOpen = math.MaxInt

// Evaluation is one pass over a store snapshot. The memo map avoids
// recomputing shared dependencies; the onPath map guards cycles, recording
// each node's position on the recursion path. Faults collects the non-fatal
// errors met along the way (malformed versions, exhausted depth budgets),
// which degrade the affected alternative to unsatisfiable rather than
// aborting the pass.
type Evaluation struct {
	r      *Resolver
	view   ports.FactStore
	memo   map[domain.PackageKey]bool
	onPath map[domain.PackageKey]int
	faults []error
}

// NewEvaluation starts a pass against the given store view. The caller is
// responsible for the view staying stable for the duration of the pass;
// the propagation engine guarantees that by holding the batch lock.
func (r *Resolver) NewEvaluation(view ports.FactStore) *Evaluation {
	return &Evaluation{
		r:      r,
		view:   view,
		memo:   make(map[domain.PackageKey]bool),
		onPath: make(map[domain.PackageKey]int),
	}
}

// Faults returns the errors collected during the pass, in encounter order.
func (e *Evaluation) Faults() []error {
	return e.faults
}

// Installable reports whether every dependency clause of p is satisfied,
// recursing into the satisfying packages when transitive evaluation is on.
func (e *Evaluation) Installable(p *domain.Package) bool {
	res, _ := e.installable(p, 0)
	return res
}

// Satisfied reports whether at least one alternative of the clause is met by
// a fact currently in the view. This is the non-transitive clause check.
func (e *Evaluation) Satisfied(dep *domain.Dependency) bool {
	res, _ := e.satisfied(dep, 0)
	return res
}

// installable returns the result together with the lowest path position of
// any still-open node the computation consumed. A cycle hit answers a
// provisional true for the open node; everything derived from it is only
// valid while that node is still being resolved, so such results must not
// enter the memo. The result is memoized only when the computation reached
// no node opened before this one.
func (e *Evaluation) installable(p *domain.Package, depth int) (bool, int) {
	key := p.Key()
	if res, ok := e.memo[key]; ok {
		return res, noOpen
	}
	// A package already on the recursion path is part of a cycle whose
	// members are otherwise satisfiable so far. Cycles count as satisfied.
	if pos, open := e.onPath[key]; open {
		return true, pos
	}

	pos := len(e.onPath)
	e.onPath[key] = pos
	res := true
	low := noOpen
	for i := range p.Depends {
		ok, l := e.satisfied(&p.Depends[i], depth)
		low = min(low, l)
		if !ok {
			res = false
			break
		}
	}
	delete(e.onPath, key)

	if low >= pos {
		// Any cycle the computation touched closed at this node, so the
		// result is final.
		e.memo[key] = res
		low = noOpen
	}
	return res, low
}

func (e *Evaluation) satisfied(dep *domain.Dependency, depth int) (bool, int) {
	// Zero alternatives is vacuously unsatisfiable, distinct from a
	// package with an empty Depends list.
	low := noOpen
	for i := range dep.Alternatives {
		ok, l := e.alternativeSatisfied(&dep.Alternatives[i], depth)
		low = min(low, l)
		if ok {
			return true, low
		}
	}
	return false, low
}

// alternativeSatisfied checks one OR branch: any present version of the
// named package may satisfy it, subject to the optional constraint and,
// transitively, to its own installability.
func (e *Evaluation) alternativeSatisfied(alt *domain.Alternative, depth int) (bool, int) {
	low := noOpen
	candidates := e.view.ByName(alt.Name)
	for i := range candidates {
		c := &candidates[i]
		if alt.Constraint != nil {
			ok, err := alt.Constraint.Satisfied(c.Version.String())
			if err != nil {
				// Malformed versions fail closed: the candidate does
				// not satisfy, and the error is kept, not thrown away.
				e.faults = append(e.faults, zerr.With(err, "candidate", c.Key().String()))
				continue
			}
			if !ok {
				continue
			}
		}
		if !e.r.transitive {
			return true, low
		}
		if e.r.maxDepth > 0 && depth+1 > e.r.maxDepth {
			e.faults = append(e.faults, zerr.With(domain.ErrCycleBudget, "candidate", c.Key().String()))
			continue
		}
		ok, l := e.installable(c, depth+1)
		low = min(low, l)
		if ok {
			return true, low
		}
	}
	return false, low
}
