package rx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stockgrid/internal/units"
)

func axis(v int) *int { return &v }

func TestPlusToMinus(t *testing.T) {
	got := PlusToMinus(New(-2.00, 1.00, axis(90)))
	assert.Equal(t, units.Diopter(-100), got.Sph)
	assert.Equal(t, units.Diopter(-100), got.Cyl)
	require.NotNil(t, got.Axis)
	assert.Equal(t, 0, *got.Axis)
}

func TestMinusToPlus(t *testing.T) {
	got := MinusToPlus(New(1.50, -0.75, axis(10)))
	assert.Equal(t, units.Diopter(75), got.Sph)
	assert.Equal(t, units.Diopter(75), got.Cyl)
	require.NotNil(t, got.Axis)
	assert.Equal(t, 100, *got.Axis)
}

func TestTranspose_NoAxis(t *testing.T) {
	got := Transpose(New(0.25, -0.50, nil))
	assert.Nil(t, got.Axis)
	assert.Equal(t, units.Diopter(-25), got.Sph)
	assert.Equal(t, units.Diopter(50), got.Cyl)
}

func TestTranspose_Involution(t *testing.T) {
	for _, sph := range units.SphValues() {
		for _, n := range []units.Notation{units.Minus, units.Plus} {
			for _, cyl := range units.CylValues(n) {
				for _, a := range []int{0, 1, 45, 89, 90, 135, 179} {
					p := Prescription{Sph: sph, Cyl: cyl, Axis: axis(a)}
					back := Transpose(Transpose(p))
					if back.Sph != p.Sph || back.Cyl != p.Cyl || *back.Axis != a {
						t.Fatalf("Transpose(Transpose(%v)) = %v", p, back)
					}
				}
			}
		}
	}
}

func TestTranspose_AxisWraps(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 90},
		{90, 0},
		{100, 10},
		{180, 90},
		{-10, 80},
	}
	for _, tt := range tests {
		got := Transpose(Prescription{Axis: axis(tt.in)})
		assert.Equal(t, tt.want, *got.Axis, "axis %d", tt.in)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      Prescription
		target  units.Notation
		wantSph units.Diopter
		wantCyl units.Diopter
	}{
		{"minus already minus", New(-1, -0.5, nil), units.Minus, -100, -50},
		{"plus into minus", New(-2, 1, nil), units.Minus, -100, -100},
		{"minus into plus", New(1.5, -0.75, nil), units.Plus, 75, 75},
		{"plus already plus", New(0.5, 0.25, nil), units.Plus, 50, 25},
		{"zero cyl stays for minus", New(3, 0, nil), units.Minus, 300, 0},
		{"zero cyl stays for plus", New(3, 0, nil), units.Plus, 300, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in, tt.target)
			assert.Equal(t, tt.wantSph, got.Sph)
			assert.Equal(t, tt.wantCyl, got.Cyl)
			assert.True(t, tt.target.Accepts(got.Cyl))
		})
	}
}

func TestPrescriptionString(t *testing.T) {
	assert.Equal(t, "-2.00 +1.00", New(-2, 1, nil).String())
	assert.Equal(t, "-2.00 +1.00 x90", New(-2, 1, axis(90)).String())
}
