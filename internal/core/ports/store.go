// Package ports defines the interfaces between the engine layers and their
// adapters.
package ports

import (
	"iter"

	"github.com/gz/scfs/internal/core/domain"
)

// FactStore holds the current set of package facts, indexed by primary key
// and by name. Implementations follow a single-writer/multiple-reader
// discipline: readers observe either the pre-batch or post-batch state,
// never a partial one. An update is always delete + insert, never a silent
// overwrite.
type FactStore interface {
	// Insert adds a fact. Returns domain.ErrDuplicatePackage if the
	// (name, version) key is already present.
	Insert(p domain.Package) error

	// Delete removes the fact with the given key. Returns
	// domain.ErrPackageNotFound if it is absent.
	Delete(key domain.PackageKey) error

	// Lookup returns the fact with the given key, if present.
	Lookup(key domain.PackageKey) (domain.Package, bool)

	// ByName returns all versions of the named package.
	ByName(name domain.InternedString) []domain.Package

	// All iterates over every fact currently in the store.
	All() iter.Seq[domain.Package]

	// Len returns the number of facts in the store.
	Len() int

	// Events returns the log entries with sequence numbers greater than
	// since, oldest first.
	Events(since uint64) []domain.Event

	// LastSeq returns the sequence number of the most recent event, or
	// zero for an empty log.
	LastSeq() uint64
}
