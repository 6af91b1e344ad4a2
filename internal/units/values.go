package units

// Fixed grid bounds in hundredths of a diopter.
const (
	SphMin   Diopter = -2000
	SphMax   Diopter = 2000
	CylLimit Diopter = 600
)

// SphValues returns every sphere value from -20.00 to +20.00 in ascending
// 0.25 steps (161 values).
func SphValues() []Diopter {
	values := make([]Diopter, 0, int((SphMax-SphMin)/Step)+1)
	for v := SphMin; v <= SphMax; v += Step {
		values = append(values, v)
	}
	return values
}

// CylValues returns the 25 cylinder values for notation n, always starting at
// zero: descending to -6.00 for minus, ascending to +6.00 for plus. Column
// order of a rendered grid follows this order.
func CylValues(n Notation) []Diopter {
	values := make([]Diopter, 0, int(CylLimit/Step)+1)
	if n == Minus {
		for v := Diopter(0); v >= -CylLimit; v -= Step {
			values = append(values, v)
		}
		return values
	}
	for v := Diopter(0); v <= CylLimit; v += Step {
		values = append(values, v)
	}
	return values
}

// Between returns the values lying in the closed interval spanned by a and b,
// in their original order. a and b may be given in either order.
func Between(values []Diopter, a, b Diopter) []Diopter {
	lo, hi := minMax(a, b)
	var out []Diopter
	for _, v := range values {
		if v >= lo && v <= hi {
			out = append(out, v)
		}
	}
	return out
}

// StepRange enumerates the 0.25 multiples between a and b inclusive in
// ascending order, independent of argument order. Off-step bounds are
// tightened inward to the nearest multiple.
func StepRange(a, b Diopter) []Diopter {
	lo, hi := minMax(a, b)
	start := ceilStep(lo)
	var out []Diopter
	for v := start; v <= hi; v += Step {
		out = append(out, v)
	}
	return out
}

func ceilStep(d Diopter) Diopter {
	r := d % Step
	switch {
	case r == 0:
		return d
	case r > 0:
		return d - r + Step
	default:
		return d - r
	}
}

func minMax(a, b Diopter) (Diopter, Diopter) {
	if a > b {
		return b, a
	}
	return a, b
}
