package facts_test

import (
	"errors"
	"testing"

	"go.trai.ch/zerr"

	"github.com/gz/scfs/internal/adapters/facts"
	"github.com/gz/scfs/internal/core/domain"
)

func pkg(name, version string) domain.Package {
	return domain.Package{
		Name:    domain.NewInternedString(name),
		Version: domain.NewInternedString(version),
	}
}

func key(name, version string) domain.PackageKey {
	return domain.PackageKey{
		Name:    domain.NewInternedString(name),
		Version: domain.NewInternedString(version),
	}
}

func TestStore_InsertDuplicate(t *testing.T) {
	s := facts.NewStore()
	if err := s.Insert(pkg("libc6", "2.31")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := s.Insert(pkg("libc6", "2.31"))
	if err == nil {
		t.Fatal("expected error for duplicate key, got nil")
	}
	if !errors.Is(err, domain.ErrDuplicatePackage) {
		t.Fatalf("expected ErrDuplicatePackage, got %v", err)
	}

	var zErr *zerr.Error
	if !errors.As(err, &zErr) {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	meta := zErr.Metadata()
	if k, ok := meta["key"].(string); !ok || k != "libc6=2.31" {
		t.Errorf("expected metadata key=libc6=2.31, got %v", meta["key"])
	}
}

func TestStore_DifferentVersionsCoexist(t *testing.T) {
	s := facts.NewStore()
	if err := s.Insert(pkg("libc6", "2.31")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Insert(pkg("libc6", "2.32")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	versions := s.ByName(domain.NewInternedString("libc6"))
	if len(versions) != 2 {
		t.Errorf("expected 2 versions, got %d", len(versions))
	}
	if s.Len() != 2 {
		t.Errorf("expected Len() = 2, got %d", s.Len())
	}
}

func TestStore_DeleteNotFound(t *testing.T) {
	s := facts.NewStore()
	err := s.Delete(key("ghost", "1.0"))
	if !errors.Is(err, domain.ErrPackageNotFound) {
		t.Errorf("expected ErrPackageNotFound, got %v", err)
	}
}

func TestStore_DeleteThenReinsert(t *testing.T) {
	s := facts.NewStore()
	if err := s.Insert(pkg("libc6", "2.31")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(key("libc6", "2.31")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, found := s.Lookup(key("libc6", "2.31")); found {
		t.Error("expected key to be absent after delete")
	}
	if got := s.ByName(domain.NewInternedString("libc6")); got != nil {
		t.Errorf("expected no versions after delete, got %v", got)
	}

	// The key is free again; an insert is not a duplicate.
	if err := s.Insert(pkg("libc6", "2.31")); err != nil {
		t.Fatalf("unexpected error on reinsert: %v", err)
	}
}

func TestStore_EventLog(t *testing.T) {
	s := facts.NewStore()
	if err := s.Insert(pkg("a", "1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Insert(pkg("b", "1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Delete(key("a", "1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := s.Events(0)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Seq != uint64(i+1) {
			t.Errorf("event %d: Seq = %d, want %d", i, ev.Seq, i+1)
		}
	}
	if events[0].Kind != domain.EventInsert || events[2].Kind != domain.EventDelete {
		t.Error("expected insert, insert, delete event kinds")
	}
	if events[0].Key != key("a", "1") {
		t.Errorf("expected first event key a=1, got %s", events[0].Key.String())
	}

	// Insert and delete of the same content share a fingerprint.
	if events[0].Fingerprint != events[2].Fingerprint {
		t.Error("expected matching fingerprints for identical content")
	}
	if events[0].Fingerprint == events[1].Fingerprint {
		t.Error("expected different facts to have different fingerprints")
	}

	tail := s.Events(2)
	if len(tail) != 1 || tail[0].Seq != 3 {
		t.Errorf("Events(2) = %v, want single event with Seq 3", tail)
	}
	if s.LastSeq() != 3 {
		t.Errorf("LastSeq() = %d, want 3", s.LastSeq())
	}
}

func TestStore_AllSnapshot(t *testing.T) {
	s := facts.NewStore()
	if err := s.Insert(pkg("a", "1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Insert(pkg("b", "1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := 0
	for p := range s.All() {
		seen++
		// Mutating mid-iteration must not affect the snapshot.
		_ = s.Insert(domain.Package{
			Name:    p.Name,
			Version: domain.NewInternedString(p.Version.String() + ".extra"),
		})
	}
	if seen != 2 {
		t.Errorf("expected snapshot of 2 facts, got %d", seen)
	}
}
