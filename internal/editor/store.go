package editor

import (
	"context"
	"errors"

	"github.com/banshee-data/stockgrid/internal/stockgrid"
)

// Store loads and saves whole grids. Implementations: db.DB (local SQLite)
// and api.Client (remote service).
type Store interface {
	// LoadGrid returns the lens's saved grid. An empty CylFormat means the
	// lens has never chosen a notation.
	LoadGrid(ctx context.Context, ref stockgrid.LensRef) (stockgrid.Snapshot, error)
	// SaveGrid replaces the lens's saved grid with snap.
	SaveGrid(ctx context.Context, ref stockgrid.LensRef, snap stockgrid.Snapshot) error
}

var (
	// ErrCorruptGridData means a loaded grid holds keys or a notation the
	// codec does not accept. Nothing is loaded.
	ErrCorruptGridData = errors.New("corrupt grid data")
	// ErrPersistence wraps any failure reported by the Store.
	ErrPersistence = errors.New("persistence failure")
)
