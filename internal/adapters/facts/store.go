// Package facts implements the in-memory fact store: an arena of package
// facts with primary-key and name indexes and a monotonic event log.
package facts

import (
	"encoding/binary"
	"iter"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"

	"github.com/gz/scfs/internal/core/domain"
	"github.com/gz/scfs/internal/core/ports"
)

var _ ports.FactStore = (*Store)(nil)

// Store is the arena-indexed fact store. Facts live in a flat slice; freed
// slots are recycled. byKey maps primary keys to slots, byName maps a
// package name to the slots of all its versions.
type Store struct {
	mu     sync.RWMutex
	arena  []domain.Package
	free   []int
	byKey  map[domain.PackageKey]int
	byName map[domain.InternedString]map[int]struct{}
	events []domain.Event
	seq    uint64
}

// NewStore creates an empty fact store.
func NewStore() *Store {
	return &Store{
		byKey:  make(map[domain.PackageKey]int),
		byName: make(map[domain.InternedString]map[int]struct{}),
	}
}

// Insert adds a fact to the store. Inserting a key that is already present
// is an error, not an overwrite.
func (s *Store) Insert(p domain.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.Key()
	if _, exists := s.byKey[key]; exists {
		return zerr.With(domain.ErrDuplicatePackage, "key", key.String())
	}

	slot := s.alloc(p)
	s.byKey[key] = slot

	versions, ok := s.byName[p.Name]
	if !ok {
		versions = make(map[int]struct{})
		s.byName[p.Name] = versions
	}
	versions[slot] = struct{}{}

	s.logEvent(domain.EventInsert, &p)
	return nil
}

// Delete removes the fact with the given key.
func (s *Store) Delete(key domain.PackageKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, exists := s.byKey[key]
	if !exists {
		return zerr.With(domain.ErrPackageNotFound, "key", key.String())
	}

	p := s.arena[slot]
	delete(s.byKey, key)
	if versions := s.byName[key.Name]; versions != nil {
		delete(versions, slot)
		if len(versions) == 0 {
			delete(s.byName, key.Name)
		}
	}
	s.arena[slot] = domain.Package{}
	s.free = append(s.free, slot)

	s.logEvent(domain.EventDelete, &p)
	return nil
}

// Lookup returns the fact with the given key, if present.
func (s *Store) Lookup(key domain.PackageKey) (domain.Package, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, exists := s.byKey[key]
	if !exists {
		return domain.Package{}, false
	}
	return s.arena[slot], true
}

// ByName returns all versions of the named package.
func (s *Store) ByName(name domain.InternedString) []domain.Package {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.byName[name]
	if len(versions) == 0 {
		return nil
	}
	res := make([]domain.Package, 0, len(versions))
	for slot := range versions {
		res = append(res, s.arena[slot])
	}
	return res
}

// All iterates over every fact in the store. The snapshot is taken when the
// iterator is created, so a concurrent batch never leaks a partial state
// into an ongoing iteration.
func (s *Store) All() iter.Seq[domain.Package] {
	s.mu.RLock()
	snapshot := make([]domain.Package, 0, len(s.byKey))
	for _, slot := range s.byKey {
		snapshot = append(snapshot, s.arena[slot])
	}
	s.mu.RUnlock()

	return func(yield func(domain.Package) bool) {
		for _, p := range snapshot {
			if !yield(p) {
				return
			}
		}
	}
}

// Len returns the number of facts currently in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

// Events returns log entries with sequence numbers greater than since.
func (s *Store) Events(since uint64) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Sequence numbers are dense and start at 1, so the offset is direct.
	if since >= s.seq {
		return nil
	}
	res := make([]domain.Event, s.seq-since)
	copy(res, s.events[since:])
	return res
}

// LastSeq returns the sequence number of the most recent event.
func (s *Store) LastSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

func (s *Store) alloc(p domain.Package) int {
	if n := len(s.free); n > 0 {
		slot := s.free[n-1]
		s.free = s.free[:n-1]
		s.arena[slot] = p
		return slot
	}
	s.arena = append(s.arena, p)
	return len(s.arena) - 1
}

func (s *Store) logEvent(kind domain.EventKind, p *domain.Package) {
	s.seq++
	s.events = append(s.events, domain.Event{
		Seq:         s.seq,
		Kind:        kind,
		Key:         p.Key(),
		Fingerprint: Fingerprint(p),
	})
}

// Fingerprint computes a content hash over the whole fact: key, dependency
// clauses, provides, and metadata. Two facts with equal fingerprints carry
// identical content, which lets log consumers treat a delete+insert of the
// same content as a no-op.
func Fingerprint(p *domain.Package) uint64 {
	h := xxhash.New()
	writeField(h, p.Name.String())
	writeField(h, p.Version.String())
	for _, dep := range p.Depends {
		for _, alt := range dep.Alternatives {
			writeField(h, alt.Name.String())
			writeConstraint(h, alt.Constraint)
		}
		writeField(h, "|")
	}
	for _, alt := range p.Provides {
		writeField(h, alt.Name.String())
		writeConstraint(h, alt.Constraint)
	}
	for _, meta := range []string{
		p.Source, p.Architecture, p.Maintainer, p.OriginalMaintainer,
		p.Replaces, p.Section, p.MultiArch, p.Homepage, p.Description,
	} {
		writeField(h, meta)
	}
	for _, f := range p.Files {
		writeField(h, f)
	}
	return h.Sum64()
}

// writeField length-prefixes each value so that field boundaries cannot
// alias ("ab"+"c" vs "a"+"bc").
func writeField(h *xxhash.Digest, v string) {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(v)))
	_, _ = h.Write(lenBuf[:])
	_, _ = h.WriteString(v)
}

func writeConstraint(h *xxhash.Digest, c *domain.Constraint) {
	if c == nil {
		writeField(h, "")
		return
	}
	writeField(h, c.Cmp.String())
	writeField(h, c.Version)
	if c.Provides {
		writeField(h, "provides")
	}
}
