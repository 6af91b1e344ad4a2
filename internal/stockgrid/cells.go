// Package stockgrid models which (sphere, cylinder) combinations a lens is
// stocked in, at which diameters, and the region operations used to edit
// that map.
//
// A grid is sparse: a coordinate missing from Cells is not stocked. All
// region operations return a new map and leave their input untouched.
package stockgrid

import (
	"maps"

	"github.com/banshee-data/stockgrid/internal/units"
)

// Cells maps a cell key to its stock record.
type Cells map[Key]Cell

// Clone returns a deep copy of c. A nil map clones to an empty one.
func (c Cells) Clone() Cells {
	out := make(Cells, len(c))
	for k, v := range c {
		out[k] = v.Clone()
	}
	return out
}

// Validate checks that every key follows the key grammar.
func (c Cells) Validate() error {
	for k := range c {
		if _, _, err := ParseKey(k); err != nil {
			return err
		}
	}
	return nil
}

// FillRectangle stocks every cell whose sphere lies in [sphMin, sphMax] and
// whose cylinder lies between cylMin and cylMax, overwriting previous values.
// The cylinder bounds may be given in either order; an inverted sphere range
// touches nothing.
func FillRectangle(cells Cells, sphMin, sphMax, cylMin, cylMax units.Diopter, diameters Diameters) Cells {
	out := shallow(cells)
	for _, sph := range sphInRange(sphMin, sphMax) {
		for _, cyl := range units.StepRange(cylMin, cylMax) {
			out[MakeKey(sph, cyl)] = stocked(diameters)
		}
	}
	return out
}

// EraseRectangle removes the cells FillRectangle would have written.
func EraseRectangle(cells Cells, sphMin, sphMax, cylMin, cylMax units.Diopter) Cells {
	out := shallow(cells)
	for _, sph := range sphInRange(sphMin, sphMax) {
		for _, cyl := range units.StepRange(cylMin, cylMax) {
			delete(out, MakeKey(sph, cyl))
		}
	}
	return out
}

// FillTriangle stocks every (sph, cyl) pair from the given value lists with
// sph + |cyl| <= maxSum. Using the cylinder magnitude makes the rule the same
// in both notations.
func FillTriangle(cells Cells, sphValues, cylValues []units.Diopter, maxSum units.Diopter, diameters Diameters) Cells {
	out := shallow(cells)
	for _, sph := range sphValues {
		for _, cyl := range cylValues {
			if sph+cyl.Abs() <= maxSum {
				out[MakeKey(sph, cyl)] = stocked(diameters)
			}
		}
	}
	return out
}

// Transpose re-keys every cell into the opposite cylinder notation, keeping
// each payload. Keys that do not parse are carried over unchanged.
func Transpose(cells Cells) Cells {
	out := make(Cells, len(cells))
	for k, v := range cells {
		out[TransposeKey(k)] = v
	}
	return out
}

// TransposeKey returns the key of the same power in the opposite notation.
// A key that does not parse is returned unchanged.
func TransposeKey(k Key) Key {
	sph, cyl, err := ParseKey(k)
	if err != nil {
		return k
	}
	return MakeKey(sph+cyl, -cyl)
}

// Delete returns cells without the given keys.
func Delete(cells Cells, keys ...Key) Cells {
	out := shallow(cells)
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Assign returns cells with every given key stocked at diameters.
func Assign(cells Cells, keys []Key, diameters Diameters) Cells {
	out := shallow(cells)
	for _, k := range keys {
		out[k] = stocked(diameters)
	}
	return out
}

func sphInRange(lo, hi units.Diopter) []units.Diopter {
	if lo > hi {
		return nil
	}
	return units.Between(units.SphValues(), lo, hi)
}

// shallow copies the map. Cell values are never mutated in place.
func shallow(cells Cells) Cells {
	out := make(Cells, len(cells))
	maps.Copy(out, cells)
	return out
}

