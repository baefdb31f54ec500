package control_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gz/scfs/internal/adapters/control"
	"github.com/gz/scfs/internal/core/domain"
)

const sampleIndex = `Package: accountsservice
Architecture: amd64
Version: 0.6.55-0ubuntu12
Maintainer: Ubuntu Developers <ubuntu-devel-discuss@lists.ubuntu.com>
Original-Maintainer: Debian freedesktop.org maintainers
Depends: dbus, libaccountsservice0 (= 0.6.55-0ubuntu12), libc6 (>= 2.4)
Section: admin
Description: query and manipulate user account information
 The AccountService project provides a set of D-Bus
 interfaces for querying and manipulating user account
 information.

Package: libqt5gui5
Architecture: amd64
Version: 5.12.8+dfsg-0ubuntu1
Pre-Depends: libc6 (>= 2.14)
Depends: libqt5core5a (>= 5.12.8) | libqt5core5a-gles (>= 5.12.8)
Provides: qt5-gui-abi (= 5.12.8)
Section: libs
Description: Qt 5 GUI module
`

func TestParse_Paragraphs(t *testing.T) {
	pkgs, err := control.Parse(strings.NewReader(sampleIndex))
	require.NoError(t, err)
	require.Len(t, pkgs, 2)

	acc := pkgs[0]
	assert.Equal(t, "accountsservice", acc.Name.String())
	assert.Equal(t, "0.6.55-0ubuntu12", acc.Version.String())
	assert.Equal(t, "admin", acc.Section)
	assert.Equal(t, "Debian freedesktop.org maintainers", acc.OriginalMaintainer)

	require.Len(t, acc.Depends, 3)
	assert.Equal(t, "dbus", acc.Depends[0].Alternatives[0].Name.String())
	assert.Nil(t, acc.Depends[0].Alternatives[0].Constraint)

	exact := acc.Depends[1].Alternatives[0]
	require.NotNil(t, exact.Constraint)
	assert.Equal(t, domain.ExactlyEqual, exact.Constraint.Cmp)
	assert.Equal(t, "0.6.55-0ubuntu12", exact.Constraint.Version)
	assert.False(t, exact.Constraint.Provides)
}

func TestParse_ContinuationLines(t *testing.T) {
	pkgs, err := control.Parse(strings.NewReader(sampleIndex))
	require.NoError(t, err)

	desc := pkgs[0].Description
	assert.True(t, strings.HasPrefix(desc, "query and manipulate user account information"))
	assert.Contains(t, desc, "D-Bus")
}

func TestParse_PreDependsFoldedIntoDepends(t *testing.T) {
	pkgs, err := control.Parse(strings.NewReader(sampleIndex))
	require.NoError(t, err)

	qt := pkgs[1]
	require.Len(t, qt.Depends, 2)

	// OR alternatives of the Depends clause survive as one clause.
	or := qt.Depends[0]
	require.Len(t, or.Alternatives, 2)
	assert.Equal(t, "libqt5core5a", or.Alternatives[0].Name.String())
	assert.Equal(t, "libqt5core5a-gles", or.Alternatives[1].Name.String())

	// Pre-Depends becomes a plain clause.
	pre := qt.Depends[1]
	require.Len(t, pre.Alternatives, 1)
	assert.Equal(t, "libc6", pre.Alternatives[0].Name.String())
}

func TestParse_VersionedProvides(t *testing.T) {
	pkgs, err := control.Parse(strings.NewReader(sampleIndex))
	require.NoError(t, err)

	qt := pkgs[1]
	require.Len(t, qt.Provides, 1)
	prov := qt.Provides[0]
	assert.Equal(t, "qt5-gui-abi", prov.Name.String())
	require.NotNil(t, prov.Constraint)
	assert.Equal(t, domain.ExactlyEqual, prov.Constraint.Cmp)
	assert.True(t, prov.Constraint.Provides)
	require.NoError(t, qt.Validate())
}

func TestParse_UnknownFieldsIgnored(t *testing.T) {
	in := "Package: a\nVersion: 1.0\nInstalled-Size: 452\nTask: minimal\n"
	pkgs, err := control.Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "a", pkgs[0].Name.String())
}

func TestParse_MissingSeparator(t *testing.T) {
	_, err := control.Parse(strings.NewReader("Package: a\nnot a field line\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIndexParseFailed))
}

func TestParse_MissingKeyFields(t *testing.T) {
	_, err := control.Parse(strings.NewReader("Package: a\nSection: libs\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidPackage))
}

func TestParse_UnknownComparator(t *testing.T) {
	_, err := control.Parse(strings.NewReader("Package: a\nVersion: 1.0\nDepends: b (~> 1.0)\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownComparator))
}

func TestParseDepends_Empty(t *testing.T) {
	deps, err := control.ParseDepends("")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestParseDepends_MalformedBinding(t *testing.T) {
	_, err := control.ParseDepends("a (>=1.0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIndexParseFailed))
}

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Packages")
	require.NoError(t, os.WriteFile(path, []byte(sampleIndex), 0o600))

	src := control.NewFileSource()
	pkgs, err := src.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, pkgs, 2)
}

func TestFileSource_LoadMissingFile(t *testing.T) {
	src := control.NewFileSource()
	_, err := src.Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
