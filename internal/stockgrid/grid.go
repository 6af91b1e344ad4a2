package stockgrid

import (
	"errors"
	"fmt"

	"github.com/banshee-data/stockgrid/internal/rx"
	"github.com/banshee-data/stockgrid/internal/units"
)

// LensRef identifies the lens a grid belongs to.
type LensRef struct {
	SupplierID string `json:"supplierId"`
	BrandID    string `json:"brandId"`
	LensID     string `json:"lensId"`
}

func (r LensRef) String() string {
	return r.SupplierID + "/" + r.BrandID + "/" + r.LensID
}

// Snapshot is the persisted form of a grid: the full cell map and the
// cylinder notation its keys are written in.
type Snapshot struct {
	CylFormat units.Notation `json:"cylFormat"`
	Cells     Cells          `json:"cells"`
}

// Grid is one lens's cell map together with its governing notation.
type Grid struct {
	Notation units.Notation
	Cells    Cells
}

// NewGrid returns an empty grid in notation n.
func NewGrid(n units.Notation) *Grid {
	return &Grid{Notation: n, Cells: Cells{}}
}

// FromSnapshot validates s and builds a grid from a copy of it.
func FromSnapshot(s Snapshot) (*Grid, error) {
	n, err := units.ParseNotation(string(s.CylFormat))
	if err != nil {
		return nil, err
	}
	if err := s.Cells.Validate(); err != nil {
		return nil, err
	}
	return &Grid{Notation: n, Cells: s.Cells.Clone()}, nil
}

// Snapshot returns a deep copy suitable for saving.
func (g *Grid) Snapshot() Snapshot {
	return Snapshot{CylFormat: g.Notation, Cells: g.Cells.Clone()}
}

// ToggleNotation flips the notation and re-keys every cell to match.
func (g *Grid) ToggleNotation() {
	g.Cells = Transpose(g.Cells)
	g.Notation = g.Notation.Flip()
}

// SphValues and CylValues are the axis values of this grid's notation.
func (g *Grid) SphValues() []units.Diopter { return units.SphValues() }
func (g *Grid) CylValues() []units.Diopter { return units.CylValues(g.Notation) }

// Availability is the answer to a stock lookup.
type Availability struct {
	Key       Key       `json:"key"`
	Stocked   bool      `json:"stocked"`
	Diameters Diameters `json:"diameters"`
	// Matched is the prescription as rewritten into the grid's notation.
	Matched rx.Prescription `json:"matched"`
}

// Lookup reports whether p is stocked. The prescription is first rewritten
// into the grid's notation and snapped to the 0.25 grid. With diameter > 0
// the cell must also list that diameter.
func (g *Grid) Lookup(p rx.Prescription, diameter float64) Availability {
	m := rx.Normalize(p, g.Notation)
	m.Sph = m.Sph.Snap()
	m.Cyl = m.Cyl.Snap()
	key := MakeKey(m.Sph, m.Cyl)
	av := Availability{Key: key, Matched: m, Diameters: Diameters{}}
	cell, ok := g.Cells[key]
	if !ok {
		return av
	}
	av.Diameters = cell.Diameters.Clone()
	av.Stocked = diameter <= 0 || cell.Diameters.Contains(diameter)
	return av
}

// ErrInvalidRxRange is returned by RxRange.Validate.
var ErrInvalidRxRange = errors.New("invalid rx range")

// RxRange is a lens's coarse stock declaration: one rectangle and the
// diameters offered across it.
type RxRange struct {
	SphMin    units.Diopter `json:"sphMin"`
	SphMax    units.Diopter `json:"sphMax"`
	CylMin    units.Diopter `json:"cylMin"`
	CylMax    units.Diopter `json:"cylMax"`
	Diameters Diameters     `json:"diameters"`
}

// Validate checks the sphere bounds are ordered and inside the grid, and
// that the diameter list is usable.
func (r RxRange) Validate() error {
	if r.SphMin > r.SphMax {
		return fmt.Errorf("%w: sphMin %s > sphMax %s", ErrInvalidRxRange, r.SphMin, r.SphMax)
	}
	if r.SphMin < units.SphMin || r.SphMax > units.SphMax {
		return fmt.Errorf("%w: sphere outside %s..%s", ErrInvalidRxRange, units.SphMin, units.SphMax)
	}
	if r.CylMin.Abs() > units.CylLimit || r.CylMax.Abs() > units.CylLimit {
		return fmt.Errorf("%w: cylinder beyond %s", ErrInvalidRxRange, units.CylLimit)
	}
	if len(NormalizeDiameters(r.Diameters)) != len(r.Diameters) {
		return fmt.Errorf("%w: diameters must be distinct positive values", ErrInvalidRxRange)
	}
	return nil
}

// Apply fills the declared rectangle into cells.
func (r RxRange) Apply(cells Cells) Cells {
	return FillRectangle(cells, r.SphMin, r.SphMax, r.CylMin, r.CylMax, r.Diameters)
}
