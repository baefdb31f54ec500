package domain

import "unique"

// InternedString wraps a unique.Handle[string]. Package names and version
// strings repeat across thousands of facts and dependency clauses, so
// interning keeps the fact base small and makes equality a pointer
// comparison. That in turn makes PackageKey a cheap comparable map key.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString interns the given string.
func NewInternedString(s string) InternedString {
	return InternedString{
		h: unique.Make(s),
	}
}

// NewInternedStrings interns every element of s.
func NewInternedStrings(s []string) []InternedString {
	res := make([]InternedString, len(s))
	for i, v := range s {
		res[i] = NewInternedString(v)
	}
	return res
}

// String returns the underlying string value.
func (is InternedString) String() string {
	return is.h.Value()
}

// MarshalText implements encoding.TextMarshaler.
func (is InternedString) MarshalText() ([]byte, error) {
	return []byte(is.h.Value()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (is *InternedString) UnmarshalText(text []byte) error {
	is.h = unique.Make(string(text))
	return nil
}
