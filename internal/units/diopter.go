package units

import (
	"fmt"
	"math"
	"strconv"
)

// Diopter is a refractive power stored in hundredths of a diopter, so that
// 0.25 steps are exact integers and range arithmetic never drifts.
type Diopter int

// Step is the ophthalmic quantization step (0.25 D).
const Step Diopter = 25

// FromFloat converts a diopter value to fixed point, rounding to 2 decimals.
func FromFloat(v float64) Diopter {
	return Diopter(math.Round(v * 100))
}

// Float returns the value in diopters.
func (d Diopter) Float() float64 {
	return float64(d) / 100
}

// Abs returns the magnitude of d.
func (d Diopter) Abs() Diopter {
	if d < 0 {
		return -d
	}
	return d
}

// OnStep reports whether d is a multiple of 0.25.
func (d Diopter) OnStep() bool {
	return d%Step == 0
}

// Snap rounds d to the nearest 0.25 multiple, halves away from zero.
func (d Diopter) Snap() Diopter {
	return Diopter(math.Round(float64(d)/float64(Step))) * Step
}

func (d Diopter) String() string {
	return FormatDiopter(d)
}

// FormatDiopter renders d with an explicit sign and two decimals: +0.00,
// -2.25, +12.50. Zero is positive.
func FormatDiopter(d Diopter) string {
	buf := make([]byte, 0, 8)
	if d < 0 {
		buf = append(buf, '-')
	} else {
		buf = append(buf, '+')
	}
	abs := d.Abs()
	buf = strconv.AppendInt(buf, int64(abs/100), 10)
	buf = append(buf, '.')
	frac := int64(abs % 100)
	if frac < 10 {
		buf = append(buf, '0')
	}
	buf = strconv.AppendInt(buf, frac, 10)
	return string(buf)
}

// MarshalJSON writes d as a plain number in diopters (-2.25).
func (d Diopter) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, d.Float(), 'f', 2, 64), nil
}

// UnmarshalJSON reads a number in diopters, rounding to hundredths.
func (d *Diopter) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("diopter %s: %w", data, err)
	}
	*d = FromFloat(v)
	return nil
}
