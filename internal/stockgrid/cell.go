package stockgrid

import (
	"math"
	"slices"
)

// Diameters is an ordered list of distinct lens diameters in millimetres.
type Diameters []float64

// CommonDiameters are the presets offered by the editor toolbar.
var CommonDiameters = Diameters{60, 65, 70, 75, 80}

// NormalizeDiameters drops duplicates and non-positive values while keeping
// first-seen order. The result is never nil.
func NormalizeDiameters(in []float64) Diameters {
	out := make(Diameters, 0, len(in))
	for _, d := range in {
		out = out.Add(d)
	}
	return out
}

// Add appends d unless it is already present or not a valid diameter.
func (ds Diameters) Add(d float64) Diameters {
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 || ds.Contains(d) {
		return ds
	}
	return append(ds, d)
}

// Toggle removes d if present, otherwise adds it.
func (ds Diameters) Toggle(d float64) Diameters {
	if i := slices.Index(ds, d); i >= 0 {
		return slices.Delete(slices.Clone(ds), i, i+1)
	}
	return ds.Add(d)
}

// Contains reports whether d is listed.
func (ds Diameters) Contains(d float64) bool {
	return slices.Contains(ds, d)
}

// Clone returns an independent copy. A nil list clones to an empty one.
func (ds Diameters) Clone() Diameters {
	out := make(Diameters, len(ds))
	copy(out, ds)
	return out
}

// Cell is the stock record of one grid coordinate.
type Cell struct {
	Active    bool      `json:"active"`
	Diameters Diameters `json:"diameters"`
}

// stocked is the value written by every fill.
func stocked(diameters Diameters) Cell {
	return Cell{Active: true, Diameters: NormalizeDiameters(diameters)}
}

// Clone returns a deep copy of c.
func (c Cell) Clone() Cell {
	return Cell{Active: c.Active, Diameters: c.Diameters.Clone()}
}
