// Package control parses Debian-style control paragraphs from a Packages
// index into package facts. It is a producer at the system boundary; the
// engine only ever sees the well-formed facts it emits.
package control

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"go.trai.ch/zerr"

	"github.com/gz/scfs/internal/core/domain"
	"github.com/gz/scfs/internal/core/ports"
)

var _ ports.PackageSource = (*FileSource)(nil)

// FileSource reads package facts from a Packages index file on disk.
type FileSource struct{}

// NewFileSource creates a FileSource.
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Load parses the index file at path into package facts.
func (s *FileSource) Load(ctx context.Context, path string) ([]domain.Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrIndexParseFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // read-only file

	pkgs, err := Parse(f)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return pkgs, nil
}

// Parse reads control paragraphs from r. Paragraphs are separated by blank
// lines; continuation lines are indented. Unknown fields are ignored, as
// the upstream index carries dozens of tags the fact schema does not model.
func Parse(r io.Reader) ([]domain.Package, error) {
	var pkgs []domain.Package

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fields := make(map[string]string)
	var lastField string
	lineNo := 0

	flush := func() error {
		if len(fields) == 0 {
			return nil
		}
		p, err := buildPackage(fields)
		if err != nil {
			return err
		}
		pkgs = append(pkgs, p)
		fields = make(map[string]string)
		lastField = ""
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, zerr.With(err, "line", lineNo)
			}
			continue
		}

		if line[0] == ' ' || line[0] == '\t' {
			if lastField != "" {
				fields[lastField] += "\n" + strings.TrimSpace(line)
			}
			continue
		}

		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, zerr.With(zerr.With(domain.ErrIndexParseFailed, "reason", "missing field separator"), "line", lineNo)
		}
		lastField = name
		fields[name] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.Wrap(err, domain.ErrIndexParseFailed.Error())
	}
	if err := flush(); err != nil {
		return nil, zerr.With(err, "line", lineNo)
	}

	return pkgs, nil
}

func buildPackage(fields map[string]string) (domain.Package, error) {
	name := fields["Package"]
	version := fields["Version"]
	if name == "" || version == "" {
		return domain.Package{}, zerr.With(domain.ErrInvalidPackage, "fields", len(fields))
	}

	p := domain.Package{
		Name:               domain.NewInternedString(name),
		Version:            domain.NewInternedString(version),
		Source:             fields["Source"],
		Architecture:       fields["Architecture"],
		Maintainer:         fields["Maintainer"],
		OriginalMaintainer: fields["Original-Maintainer"],
		Replaces:           fields["Replaces"],
		Section:            fields["Section"],
		MultiArch:          fields["Multi-Arch"],
		Homepage:           fields["Homepage"],
		Description:        fields["Description"],
	}

	// Pre-Depends differ from Depends only in unpack ordering, which is
	// transaction planning and out of scope; both become plain clauses.
	for _, field := range []string{"Depends", "Pre-Depends"} {
		deps, err := ParseDepends(fields[field])
		if err != nil {
			return domain.Package{}, zerr.With(err, "package", name)
		}
		p.Depends = append(p.Depends, deps...)
	}

	provides, err := parseProvides(fields["Provides"])
	if err != nil {
		return domain.Package{}, zerr.With(err, "package", name)
	}
	p.Provides = provides

	return p, nil
}

// ParseDepends parses a relationship line like
//
//	libc6 (>= 2.29), libqt5gui5 (>= 5.5) | libqt5gui5-gles (>= 5.5)
//
// where `,` separates AND clauses and `|` separates OR alternatives within
// a clause. An empty line yields no clauses.
func ParseDepends(line string) ([]domain.Dependency, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	var deps []domain.Dependency
	for clause := range strings.SplitSeq(line, ",") {
		var dep domain.Dependency
		for altStr := range strings.SplitSeq(clause, "|") {
			alt, err := parseAlternative(altStr, false)
			if err != nil {
				return nil, err
			}
			dep.Alternatives = append(dep.Alternatives, alt)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// parseProvides parses a Provides line. Versioned entries carry an implicit
// exact-equality binding; anything else in that position is a structural
// error caught before insert.
func parseProvides(line string) ([]domain.Alternative, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	var alts []domain.Alternative
	for entry := range strings.SplitSeq(line, ",") {
		alt, err := parseAlternative(entry, true)
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
	}
	return alts, nil
}

// parseAlternative parses "name" or "name (op version)".
func parseAlternative(s string, provides bool) (domain.Alternative, error) {
	s = strings.TrimSpace(s)

	open := strings.LastIndex(s, "(")
	if open < 0 {
		if s == "" {
			return domain.Alternative{}, zerr.With(domain.ErrIndexParseFailed, "reason", "empty alternative")
		}
		return domain.Alternative{Name: domain.NewInternedString(s)}, nil
	}

	name := strings.TrimSpace(s[:open])
	bound := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s[open:]), ")"))
	bound = strings.TrimPrefix(bound, "(")
	bound = strings.TrimSpace(bound)

	op, version, found := splitConstraint(bound)
	if !found || name == "" {
		return domain.Alternative{}, zerr.With(zerr.With(domain.ErrIndexParseFailed, "reason", "malformed version binding"), "entry", s)
	}

	cmp, err := domain.ParseComparator(op)
	if err != nil {
		return domain.Alternative{}, zerr.With(err, "entry", s)
	}

	return domain.Alternative{
		Name: domain.NewInternedString(name),
		Constraint: &domain.Constraint{
			Cmp:      cmp,
			Version:  version,
			Provides: provides,
		},
	}, nil
}

// splitConstraint splits "(>= 1.2)" content at the last space, matching the
// upstream index format where the comparator and version are space
// separated.
func splitConstraint(bound string) (op, version string, found bool) {
	mid := strings.LastIndex(bound, " ")
	if mid < 0 {
		return "", "", false
	}
	return strings.TrimSpace(bound[:mid]), strings.TrimSpace(bound[mid+1:]), true
}
