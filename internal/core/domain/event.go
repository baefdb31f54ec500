package domain

// EventKind discriminates fact store mutations.
type EventKind int

const (
	// EventInsert records a fact entering the store.
	EventInsert EventKind = iota
	// EventDelete records a fact leaving the store.
	EventDelete
)

// String returns the delta-style sign of the event, matching the +/- weight
// notation the installable-set deltas are printed with.
func (k EventKind) String() string {
	if k == EventDelete {
		return "-"
	}
	return "+"
}

// Event is one entry of the fact store's monotonic event log. The change
// propagation engine reads the log to learn which facts moved since the last
// batch. Fingerprint is a content hash of the full fact, letting log
// consumers detect identical re-insertions cheaply.
type Event struct {
	Seq         uint64
	Kind        EventKind
	Key         PackageKey
	Fingerprint uint64
}
