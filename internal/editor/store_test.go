package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stockgrid/internal/monitoring"
	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
)

type memStore struct {
	mu      sync.Mutex
	grids   map[stockgrid.LensRef]stockgrid.Snapshot
	loadErr error
	saveErr error
	// release, when set, blocks SaveGrid until closed.
	release chan struct{}
	saves   int
}

func newMemStore() *memStore {
	return &memStore{grids: make(map[stockgrid.LensRef]stockgrid.Snapshot)}
}

func (m *memStore) LoadGrid(_ context.Context, ref stockgrid.LensRef) (stockgrid.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return stockgrid.Snapshot{}, m.loadErr
	}
	snap := m.grids[ref]
	return stockgrid.Snapshot{CylFormat: snap.CylFormat, Cells: snap.Cells.Clone()}, nil
}

func (m *memStore) SaveGrid(ctx context.Context, ref stockgrid.LensRef, snap stockgrid.Snapshot) error {
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.grids[ref] = snap
	return nil
}

var testRef = stockgrid.LensRef{SupplierID: "sup", BrandID: "brand", LensID: "lens"}

func quietLogs(t *testing.T) {
	t.Helper()
	prev := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(prev) })
}

func TestOpen_DefaultsNotation(t *testing.T) {
	quietLogs(t)
	store := newMemStore()

	s, err := Open(context.Background(), store, testRef)
	require.NoError(t, err)
	assert.Equal(t, units.Minus, s.Notation())
	assert.Empty(t, s.Cells())
	assert.Equal(t, testRef, s.Ref())

	s, err = Open(context.Background(), store, testRef, WithDefaultNotation(units.Plus))
	require.NoError(t, err)
	assert.Equal(t, units.Plus, s.Notation())
}

func TestOpen_LoadsStoredGrid(t *testing.T) {
	quietLogs(t)
	store := newMemStore()
	store.grids[testRef] = stockgrid.Snapshot{
		CylFormat: units.Plus,
		Cells:     stockgrid.Cells{"-2.00_+1.00": {Active: true, Diameters: stockgrid.Diameters{60}}},
	}

	s, err := Open(context.Background(), store, testRef)
	require.NoError(t, err)
	assert.Equal(t, units.Plus, s.Notation())
	assert.Equal(t, store.grids[testRef].Cells, s.Cells())
}

func TestOpen_CorruptKey(t *testing.T) {
	quietLogs(t)
	store := newMemStore()
	store.grids[testRef] = stockgrid.Snapshot{
		CylFormat: units.Minus,
		Cells: stockgrid.Cells{
			"+0.00_+0.00": {Active: true},
			"-2_+1":       {Active: true},
		},
	}

	_, err := Open(context.Background(), store, testRef)
	assert.ErrorIs(t, err, ErrCorruptGridData)
	assert.ErrorIs(t, err, stockgrid.ErrMalformedKey)
	assert.NotErrorIs(t, err, ErrPersistence)
}

func TestOpen_NonCanonicalKeys(t *testing.T) {
	quietLogs(t)
	for _, k := range []stockgrid.Key{"+02.00_-1.00", "-0.00_-0.50", "+1.07_-0.03"} {
		t.Run(string(k), func(t *testing.T) {
			store := newMemStore()
			store.grids[testRef] = stockgrid.Snapshot{
				CylFormat: units.Minus,
				Cells: stockgrid.Cells{
					"+2.00_-1.00": {Active: true, Diameters: stockgrid.Diameters{60}},
					k:             {Active: true, Diameters: stockgrid.Diameters{70}},
				},
			}

			_, err := Open(context.Background(), store, testRef)
			assert.ErrorIs(t, err, ErrCorruptGridData)
			assert.ErrorIs(t, err, stockgrid.ErrMalformedKey)
		})
	}
}

func TestOpen_CorruptNotation(t *testing.T) {
	quietLogs(t)
	store := newMemStore()
	store.grids[testRef] = stockgrid.Snapshot{CylFormat: "diagonal"}

	_, err := Open(context.Background(), store, testRef)
	assert.ErrorIs(t, err, ErrCorruptGridData)
}

func TestOpen_StoreFailure(t *testing.T) {
	quietLogs(t)
	store := newMemStore()
	boom := errors.New("boom")
	store.loadErr = boom

	_, err := Open(context.Background(), store, testRef)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, boom)
}

func TestReload_FailureKeepsState(t *testing.T) {
	quietLogs(t)
	store := newMemStore()
	s, err := Open(context.Background(), store, testRef)
	require.NoError(t, err)
	s.QuickFill(0, 0, 0, 0, stockgrid.Diameters{60})

	store.grids[testRef] = stockgrid.Snapshot{Cells: stockgrid.Cells{"bad": {}}}
	assert.ErrorIs(t, s.Reload(context.Background()), ErrCorruptGridData)
	assert.Len(t, s.Cells(), 1)
}

func TestSaveRoundTrip(t *testing.T) {
	quietLogs(t)
	store := newMemStore()
	s, err := Open(context.Background(), store, testRef)
	require.NoError(t, err)

	s.QuickFill(d(-1), d(1), 0, d(-1), stockgrid.Diameters{70})
	s.ToggleCylFormat()
	require.NoError(t, s.Save(context.Background()))

	again, err := Open(context.Background(), store, testRef)
	require.NoError(t, err)
	assert.Equal(t, units.Plus, again.Notation())
	if diff := cmp.Diff(s.Cells(), again.Cells()); diff != "" {
		t.Errorf("reloaded cells mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_FailureLeavesGrid(t *testing.T) {
	quietLogs(t)
	store := newMemStore()
	s, err := Open(context.Background(), store, testRef)
	require.NoError(t, err)
	s.QuickFill(0, 0, 0, 0, stockgrid.Diameters{60})
	before := s.Snapshot()

	store.saveErr = errors.New("disk full")
	err = s.Save(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, before, s.Snapshot())
}

func TestSave_Unbound(t *testing.T) {
	s := NewSession(units.Minus)
	assert.ErrorIs(t, s.Save(context.Background()), ErrPersistence)
	assert.ErrorIs(t, <-s.SaveAsync(context.Background()), ErrPersistence)
	assert.ErrorIs(t, s.Reload(context.Background()), ErrPersistence)
}

func TestSaveAsync_SnapshotAtCallTime(t *testing.T) {
	quietLogs(t)
	store := newMemStore()
	store.release = make(chan struct{})
	s, err := Open(context.Background(), store, testRef)
	require.NoError(t, err)

	s.QuickFill(0, 0, 0, 0, stockgrid.Diameters{60})
	done := s.SaveAsync(context.Background())
	assert.True(t, s.Saving())

	// Edits while the save is pending belong to the next save.
	s.QuickFill(d(1), d(1), 0, 0, stockgrid.Diameters{65})
	close(store.release)
	require.NoError(t, <-done)

	store.mu.Lock()
	saved := store.grids[testRef]
	store.mu.Unlock()
	assert.Len(t, saved.Cells, 1)
	assert.Len(t, s.Cells(), 2)

	assert.Eventually(t, func() bool { return !s.Saving() }, time.Second, time.Millisecond)
}

func TestSaveAsync_Cancelled(t *testing.T) {
	quietLogs(t)
	store := newMemStore()
	store.release = make(chan struct{})
	s, err := Open(context.Background(), store, testRef)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := s.SaveAsync(ctx)
	cancel()
	err = <-done
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, context.Canceled)
}
