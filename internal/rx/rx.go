// Package rx converts spectacle prescriptions between plus-cylinder and
// minus-cylinder notation.
package rx

import (
	"fmt"

	"github.com/banshee-data/stockgrid/internal/units"
)

// Prescription is a sphero-cylindrical power. Axis is in degrees and is
// optional; stock grids do not track it.
type Prescription struct {
	Sph  units.Diopter `json:"sph"`
	Cyl  units.Diopter `json:"cyl"`
	Axis *int          `json:"axis,omitempty"`
}

// New builds a prescription from diopter values, rounding to hundredths.
func New(sph, cyl float64, axis *int) Prescription {
	return Prescription{Sph: units.FromFloat(sph), Cyl: units.FromFloat(cyl), Axis: axis}
}

func (p Prescription) String() string {
	if p.Axis == nil {
		return fmt.Sprintf("%s %s", p.Sph, p.Cyl)
	}
	return fmt.Sprintf("%s %s x%d", p.Sph, p.Cyl, *p.Axis)
}

// Transpose rewrites p in the opposite cylinder notation: the cylinder is
// added to the sphere, its sign flips, and the axis turns by 90 degrees.
// Applying it twice returns the original prescription.
func Transpose(p Prescription) Prescription {
	out := Prescription{
		Sph: p.Sph + p.Cyl,
		Cyl: -p.Cyl,
	}
	if p.Axis != nil {
		axis := ((*p.Axis+90)%180 + 180) % 180
		out.Axis = &axis
	}
	return out
}

// PlusToMinus converts a plus-cylinder prescription to minus-cylinder form.
func PlusToMinus(p Prescription) Prescription {
	return Transpose(p)
}

// MinusToPlus converts a minus-cylinder prescription to plus-cylinder form.
// The transform is its own inverse, so this is the same as PlusToMinus.
func MinusToPlus(p Prescription) Prescription {
	return Transpose(p)
}

// Normalize returns p written in the target notation. A prescription whose
// cylinder sign already matches (including zero cylinder) is returned as is.
func Normalize(p Prescription, target units.Notation) Prescription {
	if target.Accepts(p.Cyl) {
		return p
	}
	return Transpose(p)
}
