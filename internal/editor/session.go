// Package editor drives interactive editing of a lens's stock grid: tool
// modes, pointer drags, the selection, bulk fills, notation toggling, and
// loading/saving through a Store.
//
// A Session is owned by one editor and is not safe for concurrent use. The
// only work it hands to another goroutine is SaveAsync, which operates on a
// snapshot taken before it returns.
package editor

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/banshee-data/stockgrid/internal/monitoring"
	"github.com/banshee-data/stockgrid/internal/rx"
	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
)

// DefaultNotation applies to lenses whose notation was never set.
const DefaultNotation = units.Minus

type dragState struct {
	active  bool
	anchor  Point
	current Point
}

// Session is one editor's in-memory view of a grid.
type Session struct {
	grid      *stockgrid.Grid
	mode      Mode
	selection Selection
	drag      dragState

	store           Store
	ref             stockgrid.LensRef
	defaultNotation units.Notation
	pendingSaves    atomic.Int32
}

// Option configures a Session.
type Option func(*Session)

// WithDefaultNotation sets the notation used when a loaded grid has none.
func WithDefaultNotation(n units.Notation) Option {
	return func(s *Session) { s.defaultNotation = n }
}

// NewSession returns a session over an empty grid in notation n, not bound
// to any store.
func NewSession(n units.Notation) *Session {
	return &Session{
		grid:            stockgrid.NewGrid(n),
		mode:            ModeSelect,
		selection:       Selection{},
		defaultNotation: DefaultNotation,
	}
}

// Open loads the grid of ref from store and returns a session bound to it.
func Open(ctx context.Context, store Store, ref stockgrid.LensRef, opts ...Option) (*Session, error) {
	s := NewSession(DefaultNotation)
	for _, opt := range opts {
		opt(s)
	}
	s.store = store
	s.ref = ref
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the grid with the stored one, dropping the selection and
// any drag. On error the session is unchanged.
func (s *Session) Reload(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("%w: session has no store", ErrPersistence)
	}
	snap, err := s.store.LoadGrid(ctx, s.ref)
	if err != nil {
		return fmt.Errorf("%w: load %s: %w", ErrPersistence, s.ref, err)
	}
	if snap.CylFormat == "" {
		snap.CylFormat = s.defaultNotation
	}
	grid, err := stockgrid.FromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("%w: lens %s: %w", ErrCorruptGridData, s.ref, err)
	}
	s.grid = grid
	s.selection = Selection{}
	s.drag = dragState{}
	monitoring.Logf("loaded grid for lens %s: %d cells, %s cylinder", s.ref, len(grid.Cells), grid.Notation)
	return nil
}

// Save writes a snapshot of the grid to the store and blocks until the store
// answers. The in-memory grid is not touched, whatever the outcome.
func (s *Session) Save(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("%w: session has no store", ErrPersistence)
	}
	return s.save(ctx, s.grid.Snapshot())
}

// SaveAsync snapshots the grid and saves it in the background. The returned
// channel yields the result once. Edits made after SaveAsync returns are not
// part of that save.
func (s *Session) SaveAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	if s.store == nil {
		done <- fmt.Errorf("%w: session has no store", ErrPersistence)
		return done
	}
	snap := s.grid.Snapshot()
	s.pendingSaves.Add(1)
	go func() {
		defer s.pendingSaves.Add(-1)
		done <- s.save(ctx, snap)
	}()
	return done
}

func (s *Session) save(ctx context.Context, snap stockgrid.Snapshot) error {
	if err := s.store.SaveGrid(ctx, s.ref, snap); err != nil {
		monitoring.Logf("failed to save grid for lens %s: %v", s.ref, err)
		return fmt.Errorf("%w: save %s: %w", ErrPersistence, s.ref, err)
	}
	monitoring.Logf("saved grid for lens %s: %d cells", s.ref, len(snap.Cells))
	return nil
}

// Saving reports whether a SaveAsync is still in flight.
func (s *Session) Saving() bool {
	return s.pendingSaves.Load() > 0
}

// Ref is the lens the session is bound to.
func (s *Session) Ref() stockgrid.LensRef { return s.ref }

// Notation is the grid's active cylinder notation.
func (s *Session) Notation() units.Notation { return s.grid.Notation }

// Cells returns a copy of the cell map.
func (s *Session) Cells() stockgrid.Cells { return s.grid.Cells.Clone() }

// Snapshot returns the persistable state of the grid.
func (s *Session) Snapshot() stockgrid.Snapshot { return s.grid.Snapshot() }

// Stats summarises the current cell map.
func (s *Session) Stats() stockgrid.Stats { return stockgrid.ComputeStats(s.grid.Cells) }

// Lookup reports whether p is stocked in the current grid.
func (s *Session) Lookup(p rx.Prescription, diameter float64) stockgrid.Availability {
	return s.grid.Lookup(p, diameter)
}

// Mode is the active tool.
func (s *Session) Mode() Mode { return s.mode }

// SetMode switches tool. It does not touch the grid or the selection.
func (s *Session) SetMode(m Mode) { s.mode = m }

// Dragging reports whether a pointer drag is in progress.
func (s *Session) Dragging() bool { return s.drag.active }

// StartDrag begins a drag at (sph, cyl).
func (s *Session) StartDrag(sph, cyl units.Diopter) {
	p := Point{Sph: sph, Cyl: cyl}
	s.drag = dragState{active: true, anchor: p, current: p}
	if h := dragHandlers[s.mode]; h.start != nil {
		h.start(s, p)
	}
}

// ContinueDrag moves the drag to (sph, cyl). Ignored when not dragging.
func (s *Session) ContinueDrag(sph, cyl units.Diopter) {
	if !s.drag.active {
		return
	}
	p := Point{Sph: sph, Cyl: cyl}
	s.drag.current = p
	if h := dragHandlers[s.mode]; h.move != nil {
		h.move(s, p)
	}
}

// EndDrag releases the pointer. Ignored when not dragging.
func (s *Session) EndDrag() {
	if !s.drag.active {
		return
	}
	if h := dragHandlers[s.mode]; h.end != nil {
		h.end(s)
	}
	s.drag = dragState{}
}

// Preview is the rectangle covered by the current drag in a previewing
// mode, and empty otherwise.
func (s *Session) Preview() Selection {
	if !s.drag.active || !dragHandlers[s.mode].previews {
		return Selection{}
	}
	return rectanglePreview(s.grid.Notation, s.drag.anchor, s.drag.current)
}

// Selection returns a copy of the committed selection.
func (s *Session) Selection() Selection { return s.selection.Clone() }

// EffectiveSelection is what the UI should highlight: the drag preview
// while a rectangle drag is in progress, the committed selection otherwise.
func (s *Session) EffectiveSelection() Selection {
	if s.drag.active && dragHandlers[s.mode].previews {
		return s.Preview()
	}
	return s.Selection()
}

// ToggleCell flips the selection membership of one cell.
func (s *Session) ToggleCell(sph, cyl units.Diopter) {
	s.selection.Toggle(stockgrid.MakeKey(sph, cyl))
}

// ApplyDiameters stocks every selected cell at diameters and clears the
// selection. No-op with an empty selection.
func (s *Session) ApplyDiameters(diameters stockgrid.Diameters) {
	if s.selection.Len() == 0 {
		return
	}
	s.grid.Cells = stockgrid.Assign(s.grid.Cells, s.selection.Keys(), diameters)
	s.selection = Selection{}
}

// QuickFill stocks a rectangle of cells. The cylinder range is clipped to
// the active notation.
func (s *Session) QuickFill(sphMin, sphMax, cylMin, cylMax units.Diopter, diameters stockgrid.Diameters) {
	lo, hi, ok := s.cylBounds(cylMin, cylMax)
	if !ok {
		return
	}
	s.grid.Cells = stockgrid.FillRectangle(s.grid.Cells, sphMin, sphMax, lo, hi, diameters)
}

// EraseRange removes a rectangle of cells, clipped like QuickFill.
func (s *Session) EraseRange(sphMin, sphMax, cylMin, cylMax units.Diopter) {
	lo, hi, ok := s.cylBounds(cylMin, cylMax)
	if !ok {
		return
	}
	s.grid.Cells = stockgrid.EraseRectangle(s.grid.Cells, sphMin, sphMax, lo, hi)
}

// cylBounds clips a cylinder range to the active notation's columns.
func (s *Session) cylBounds(a, b units.Diopter) (lo, hi units.Diopter, ok bool) {
	cols := units.Between(s.grid.CylValues(), a, b)
	if len(cols) == 0 {
		return 0, 0, false
	}
	return slices.Min(cols), slices.Max(cols), true
}

// FillTriangleRegion stocks every cell of the active notation with
// sph + |cyl| <= maxSum.
func (s *Session) FillTriangleRegion(maxSum units.Diopter, diameters stockgrid.Diameters) {
	s.grid.Cells = stockgrid.FillTriangle(s.grid.Cells, s.grid.SphValues(), s.grid.CylValues(), maxSum, diameters)
}

// ApplyRxRange fills the rectangle a lens's rx range declares.
func (s *Session) ApplyRxRange(r stockgrid.RxRange) {
	lo, hi, ok := s.cylBounds(r.CylMin, r.CylMax)
	if !ok {
		return
	}
	r.CylMin, r.CylMax = lo, hi
	s.grid.Cells = r.Apply(s.grid.Cells)
}

// EraseSelected removes the selected cells and clears the selection. No-op
// with an empty selection.
func (s *Session) EraseSelected() {
	if s.selection.Len() == 0 {
		return
	}
	s.grid.Cells = stockgrid.Delete(s.grid.Cells, s.selection.Keys()...)
	s.selection = Selection{}
}

// EraseAll empties the grid and the selection. Callers confirm with the
// operator first; there is no undo.
func (s *Session) EraseAll() {
	s.grid.Cells = stockgrid.Cells{}
	s.selection = Selection{}
}

// ToggleCylFormat switches notation and transposes every cell. The
// selection is transposed with the grid so it keeps pointing at the same
// powers.
func (s *Session) ToggleCylFormat() {
	s.grid.ToggleNotation()
	sel := make(Selection, len(s.selection))
	for k := range s.selection {
		sel.Add(stockgrid.TransposeKey(k))
	}
	s.selection = sel
}

func (s *Session) deleteCell(k stockgrid.Key) {
	if _, ok := s.grid.Cells[k]; !ok {
		return
	}
	s.grid.Cells = stockgrid.Delete(s.grid.Cells, k)
}
