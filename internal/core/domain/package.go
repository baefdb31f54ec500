// Package domain contains the core domain model for the package fact base:
// package facts, dependency clauses, version constraints, and the version
// ordering they are evaluated under.
package domain

import "go.trai.ch/zerr"

// PackageKey is the primary key of a package fact. Both fields are interned,
// so the struct is a cheap comparable map key.
type PackageKey struct {
	Name    InternedString
	Version InternedString
}

// String renders the key as "name=version".
func (k PackageKey) String() string {
	return k.Name.String() + "=" + k.Version.String()
}

// Alternative is one branch of an OR-dependency: a package name with an
// optional version constraint. A nil Constraint means any version.
type Alternative struct {
	Name       InternedString
	Constraint *Constraint
}

// Dependency is one dependency clause, a logical OR across alternatives.
// A clause with zero alternatives is vacuously unsatisfiable, which is
// distinct from a package with no clauses at all (vacuously satisfied).
type Dependency struct {
	Alternatives []Alternative
}

// Package is one fact row, keyed by (name, version). Everything beyond Name,
// Version, Depends and Provides is opaque metadata carried through unchanged.
type Package struct {
	Name    InternedString
	Version InternedString
	Depends []Dependency

	// Provides lists virtual packages this package declares. Opaque to the
	// resolver; validated at insert time (exact-equality bindings only).
	Provides []Alternative

	Source             string
	Architecture       string
	Maintainer         string
	OriginalMaintainer string
	Replaces           string
	Section            string
	MultiArch          string
	Homepage           string
	Description        string
	Files              []string
}

// Key returns the fact's primary key.
func (p *Package) Key() PackageKey {
	return PackageKey{Name: p.Name, Version: p.Version}
}

// Validate checks the structural invariants that must hold before the fact
// may enter the store: a non-empty key, and no Provides binding with a
// comparator other than exact equality. Resolution-time concerns such as
// malformed version strings are deliberately not checked here; those fail
// closed during evaluation instead.
func (p *Package) Validate() error {
	if p.Name.String() == "" || p.Version.String() == "" {
		return zerr.With(ErrInvalidPackage, "key", p.Key().String())
	}
	for _, dep := range p.Depends {
		for _, alt := range dep.Alternatives {
			if alt.Constraint == nil {
				continue
			}
			if err := alt.Constraint.Validate(); err != nil {
				return zerr.With(err, "package", p.Key().String())
			}
		}
	}
	for _, alt := range p.Provides {
		if alt.Constraint == nil {
			continue
		}
		if err := alt.Constraint.Validate(); err != nil {
			return zerr.With(err, "package", p.Key().String())
		}
	}
	return nil
}
