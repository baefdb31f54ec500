package domain

import "go.trai.ch/zerr"

var (
	// ErrDuplicatePackage is returned when inserting a package whose
	// (name, version) key is already present in the fact store.
	ErrDuplicatePackage = zerr.New("package already exists")

	// ErrPackageNotFound is returned when deleting a (name, version) key
	// that is not present in the fact store.
	ErrPackageNotFound = zerr.New("package not found")

	// ErrVersionFormat is returned when a version string is empty or
	// contains characters outside the accepted alphabet.
	ErrVersionFormat = zerr.New("malformed version string")

	// ErrUnknownComparator is returned when parsing a comparator spelling
	// that is not one of <<, <=, =, >=, >>.
	ErrUnknownComparator = zerr.New("unknown version comparator")

	// ErrConstraintConfig is returned when a Provides binding carries a
	// comparator other than exact equality. This is a structural fact
	// error, rejected at insert time.
	ErrConstraintConfig = zerr.New("provides binding requires exact-equality comparator")

	// ErrInvalidPackage is returned when a package fact is missing its
	// name or version.
	ErrInvalidPackage = zerr.New("package fact missing name or version")

	// ErrCycleBudget is reported when the configured propagation or
	// recursion depth bound is reached before a fixpoint. The affected
	// packages are conservatively treated as not installable.
	ErrCycleBudget = zerr.New("depth budget exceeded before fixpoint")

	// ErrBadDeletePolicy is returned when the configured missing-delete
	// policy is not one of "warn" or "fail".
	ErrBadDeletePolicy = zerr.New("invalid missing_delete policy, expected 'warn' or 'fail'")

	// ErrIndexParseFailed is returned when a package index file cannot be
	// parsed into package facts.
	ErrIndexParseFailed = zerr.New("failed to parse package index")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrNoIndexSpecified is returned when the derive command is invoked
	// without a package index file.
	ErrNoIndexSpecified = zerr.New("no package index specified")
)
