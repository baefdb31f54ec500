package domain

import "go.trai.ch/zerr"

// Comparator is one of the five relational operators a dependency may bind
// to a version. The string spellings are the Debian control-file ones and
// must round-trip exactly when facts are serialized.
type Comparator int

const (
	// StrictlyEarlier matches versions strictly before the bound (<<).
	StrictlyEarlier Comparator = iota
	// EarlierOrEqual matches versions at or before the bound (<=).
	EarlierOrEqual
	// ExactlyEqual matches only the bound itself (=).
	ExactlyEqual
	// LaterOrEqual matches versions at or after the bound (>=).
	LaterOrEqual
	// StrictlyLater matches versions strictly after the bound (>>).
	StrictlyLater
)

// String returns the control-file spelling of the comparator.
func (c Comparator) String() string {
	switch c {
	case StrictlyEarlier:
		return "<<"
	case EarlierOrEqual:
		return "<="
	case ExactlyEqual:
		return "="
	case LaterOrEqual:
		return ">="
	case StrictlyLater:
		return ">>"
	}
	return "?"
}

// ParseComparator maps a control-file spelling to its Comparator.
func ParseComparator(s string) (Comparator, error) {
	switch s {
	case "<<":
		return StrictlyEarlier, nil
	case "<=":
		return EarlierOrEqual, nil
	case "=":
		return ExactlyEqual, nil
	case ">=":
		return LaterOrEqual, nil
	case ">>":
		return StrictlyLater, nil
	}
	return 0, zerr.With(ErrUnknownComparator, "spelling", s)
}

// Constraint binds a comparator and a version to a dependency alternative.
// Provides marks the binding as coming from a virtual-package declaration;
// such bindings are only meaningful with ExactlyEqual.
type Constraint struct {
	Cmp      Comparator
	Version  string
	Provides bool
}

// Validate rejects Provides bindings that carry anything other than an
// exact-equality comparator.
func (c *Constraint) Validate() error {
	if c.Provides && c.Cmp != ExactlyEqual {
		return zerr.With(ErrConstraintConfig, "comparator", c.Cmp.String())
	}
	return nil
}

// Satisfied reports whether the actual version meets the constraint.
// Comparison errors propagate so the caller can fail closed.
func (c *Constraint) Satisfied(actual string) (bool, error) {
	ord, err := CompareVersions(actual, c.Version)
	if err != nil {
		return false, err
	}
	switch c.Cmp {
	case StrictlyEarlier:
		return ord < 0, nil
	case EarlierOrEqual:
		return ord <= 0, nil
	case ExactlyEqual:
		return ord == 0, nil
	case LaterOrEqual:
		return ord >= 0, nil
	case StrictlyLater:
		return ord > 0, nil
	}
	return false, zerr.With(ErrUnknownComparator, "comparator", int(c.Cmp))
}
