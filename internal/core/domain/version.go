package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// versionAlphabet is the set of characters a version string may contain,
// beyond ASCII alphanumerics. Matches the Debian version character set.
const versionAlphabet = ".+-:~"

func validVersionRune(r rune) bool {
	if r >= '0' && r <= '9' {
		return true
	}
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
		return true
	}
	return strings.ContainsRune(versionAlphabet, r)
}

// checkVersion validates a version string against the accepted alphabet.
func checkVersion(v string) error {
	if v == "" {
		return zerr.With(ErrVersionFormat, "reason", "empty")
	}
	for _, r := range v {
		if !validVersionRune(r) {
			return zerr.With(zerr.With(ErrVersionFormat, "version", v), "rune", string(r))
		}
	}
	return nil
}

// splitRuns tokenizes a version string into maximal runs of digits and
// non-digits. "1.10-rc2" becomes ["1", ".", "10", "-rc", "2"].
func splitRuns(v string) []string {
	runs := make([]string, 0, 8)
	start := 0
	for i := 1; i <= len(v); i++ {
		if i == len(v) || isDigit(v[i]) != isDigit(v[start]) {
			runs = append(runs, v[start:i])
			start = i
		}
	}
	return runs
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// CompareVersions orders two version strings component-wise: numeric runs
// compare numerically, alphabetic runs lexicographically, and a present run
// outranks a missing one. Naive lexicographic comparison would get "9" vs
// "10" wrong, hence the run splitting. Returns a negative value, zero, or a
// positive value, or ErrVersionFormat if either string fails the grammar.
func CompareVersions(a, b string) (int, error) {
	if err := checkVersion(a); err != nil {
		return 0, err
	}
	if err := checkVersion(b); err != nil {
		return 0, err
	}

	ra, rb := splitRuns(a), splitRuns(b)
	for i := 0; i < len(ra) && i < len(rb); i++ {
		if ord := compareRun(ra[i], rb[i]); ord != 0 {
			return ord, nil
		}
	}
	// Shared prefix is equal. The version with more runs is later.
	switch {
	case len(ra) < len(rb):
		return -1, nil
	case len(ra) > len(rb):
		return 1, nil
	}
	return 0, nil
}

func compareRun(a, b string) int {
	na, nb := isDigit(a[0]), isDigit(b[0])
	switch {
	case na && nb:
		return compareNumeric(a, b)
	case na:
		// A numeric run outranks an alphabetic one at the same position.
		return 1
	case nb:
		return -1
	}
	return strings.Compare(a, b)
}

// compareNumeric compares two digit runs without converting them, so
// arbitrarily long components cannot overflow.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
