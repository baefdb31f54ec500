package app_test

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/gz/scfs/internal/adapters/config"
	"github.com/gz/scfs/internal/adapters/facts"
	"github.com/gz/scfs/internal/app"
	"github.com/gz/scfs/internal/core/domain"
	"github.com/gz/scfs/internal/core/ports"
	"github.com/gz/scfs/internal/core/ports/mocks"
	"github.com/gz/scfs/internal/engine/propagation"
	"github.com/gz/scfs/internal/engine/resolver"
)

func pkg(name, version string, deps ...domain.Dependency) domain.Package {
	return domain.Package{
		Name:    domain.NewInternedString(name),
		Version: domain.NewInternedString(version),
		Depends: deps,
	}
}

func depOn(name string) domain.Dependency {
	return domain.Dependency{Alternatives: []domain.Alternative{
		{Name: domain.NewInternedString(name)},
	}}
}

// stubWatcher feeds a pre-baked event sequence to App.Watch.
type stubWatcher struct {
	events  chan ports.IndexEvent
	stopped bool
}

func newStubWatcher(n int) *stubWatcher {
	events := make(chan ports.IndexEvent, n)
	for range n {
		events <- ports.IndexEvent{}
	}
	close(events)
	return &stubWatcher{events: events}
}

func (w *stubWatcher) Start(ctx context.Context, path string) error { return nil }

func (w *stubWatcher) Stop() error {
	w.stopped = true
	return nil
}

func (w *stubWatcher) Events() iter.Seq[ports.IndexEvent] {
	return func(yield func(ports.IndexEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

func newApp(t *testing.T, source *mocks.MockPackageSource, watch ports.IndexWatcher) (*app.App, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()

	cfg := config.Default()
	store := facts.NewStore()
	eng := propagation.New(store, resolver.New(cfg.Transitive, cfg.MaxDepth), log, cfg)

	a := app.New(source, store, eng, watch, log)
	var out bytes.Buffer
	a.SetOutput(&out)
	return a, &out
}

func TestDerive_PrintsDeltaAndCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPackageSource(ctrl)
	source.EXPECT().
		Load(gomock.Any(), "Packages").
		Return([]domain.Package{
			pkg("lib", "2.0"),
			pkg("app", "1.0", depOn("lib")),
			pkg("broken", "1.0", depOn("missing")),
		}, nil)

	a, out := newApp(t, source, nil)
	require.NoError(t, a.Derive(context.Background(), "Packages"))

	assert.Equal(t, "+ app 1.0\n+ lib 2.0\ninstallable: 2\n", out.String())
}

func TestDerive_EmptyPath(t *testing.T) {
	a, _ := newApp(t, nil, nil)
	err := a.Derive(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoIndexSpecified))
}

func TestDerive_SourceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPackageSource(ctrl)
	loadErr := domain.ErrIndexParseFailed
	source.EXPECT().
		Load(gomock.Any(), "Packages").
		Return(nil, loadErr)

	a, out := newApp(t, source, nil)
	err := a.Derive(context.Background(), "Packages")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIndexParseFailed))
	assert.Empty(t, out.String())
}

func TestSync_ReconcilesStoreAgainstIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPackageSource(ctrl)

	first := source.EXPECT().
		Load(gomock.Any(), "Packages").
		Return([]domain.Package{
			pkg("lib", "2.0"),
			pkg("app", "1.0", depOn("lib")),
		}, nil)
	// Second index revision: lib 2.0 is gone, lib 3.0 appears, app's record
	// is unchanged and must not be touched.
	source.EXPECT().
		Load(gomock.Any(), "Packages").
		After(first).
		Return([]domain.Package{
			pkg("lib", "3.0"),
			pkg("app", "1.0", depOn("lib")),
		}, nil)

	a, out := newApp(t, source, nil)
	require.NoError(t, a.Sync(context.Background(), "Packages"))
	assert.Equal(t, "+ app 1.0\n+ lib 2.0\ninstallable: 2\n", out.String())

	out.Reset()
	require.NoError(t, a.Sync(context.Background(), "Packages"))
	assert.Equal(t, "+ lib 3.0\n- lib 2.0\ninstallable: 2\n", out.String())
}

func TestSync_ReplacesChangedFact(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPackageSource(ctrl)

	first := source.EXPECT().
		Load(gomock.Any(), "Packages").
		Return([]domain.Package{pkg("lib", "2.0")}, nil)
	// Same key, new dependency content: the fact must be replaced and the
	// new record re-evaluated.
	source.EXPECT().
		Load(gomock.Any(), "Packages").
		After(first).
		Return([]domain.Package{pkg("lib", "2.0", depOn("missing"))}, nil)

	a, out := newApp(t, source, nil)
	require.NoError(t, a.Sync(context.Background(), "Packages"))
	out.Reset()

	require.NoError(t, a.Sync(context.Background(), "Packages"))
	assert.Equal(t, "- lib 2.0\ninstallable: 0\n", out.String())
}

func TestSync_NoChangesEmptyDelta(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPackageSource(ctrl)
	source.EXPECT().
		Load(gomock.Any(), "Packages").
		Times(2).
		Return([]domain.Package{pkg("lib", "2.0")}, nil)

	a, out := newApp(t, source, nil)
	require.NoError(t, a.Sync(context.Background(), "Packages"))
	out.Reset()

	require.NoError(t, a.Sync(context.Background(), "Packages"))
	assert.Equal(t, "installable: 1\n", out.String())
}

func TestWatch_SyncsPerEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPackageSource(ctrl)

	// One initial sync plus one per watch event.
	first := source.EXPECT().
		Load(gomock.Any(), "Packages").
		Return([]domain.Package{pkg("lib", "2.0")}, nil)
	source.EXPECT().
		Load(gomock.Any(), "Packages").
		After(first).
		Return([]domain.Package{pkg("lib", "2.1")}, nil)

	watch := newStubWatcher(1)
	a, out := newApp(t, source, watch)
	require.NoError(t, a.Watch(context.Background(), "Packages"))

	assert.True(t, watch.stopped)
	assert.Equal(t, "+ lib 2.0\ninstallable: 1\n+ lib 2.1\n- lib 2.0\ninstallable: 1\n", out.String())
}

func TestWatch_KeepsWatchingAfterSyncFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPackageSource(ctrl)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).Times(1)

	first := source.EXPECT().
		Load(gomock.Any(), "Packages").
		Return([]domain.Package{pkg("lib", "2.0")}, nil)
	// A half-written index fails to parse; the watch must survive it.
	second := source.EXPECT().
		Load(gomock.Any(), "Packages").
		After(first).
		Return(nil, domain.ErrIndexParseFailed)
	source.EXPECT().
		Load(gomock.Any(), "Packages").
		After(second).
		Return([]domain.Package{pkg("lib", "2.1")}, nil)

	cfg := config.Default()
	store := facts.NewStore()
	eng := propagation.New(store, resolver.New(cfg.Transitive, cfg.MaxDepth), log, cfg)
	watch := newStubWatcher(2)
	a := app.New(source, store, eng, watch, log)
	var out bytes.Buffer
	a.SetOutput(&out)

	require.NoError(t, a.Watch(context.Background(), "Packages"))
	assert.Contains(t, out.String(), "+ lib 2.1")
}

func TestRemove_PrintsDelta(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockPackageSource(ctrl)
	source.EXPECT().
		Load(gomock.Any(), "Packages").
		Return([]domain.Package{
			pkg("lib", "2.0"),
			pkg("app", "1.0", depOn("lib")),
		}, nil)

	a, out := newApp(t, source, nil)
	require.NoError(t, a.Derive(context.Background(), "Packages"))
	out.Reset()

	require.NoError(t, a.Remove(context.Background(), []string{"lib=2.0"}))
	assert.Equal(t, "- app 1.0\n- lib 2.0\n", out.String())
}

func TestRemove_MalformedKey(t *testing.T) {
	a, _ := newApp(t, nil, nil)
	for _, k := range []string{"lib", "=1.0", "lib=", ""} {
		err := a.Remove(context.Background(), []string{k})
		require.Error(t, err, "key %q", k)
		assert.True(t, errors.Is(err, domain.ErrInvalidPackage), "key %q", k)
	}
}
