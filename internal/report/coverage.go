// Package report renders a stock grid as a coverage matrix, an interactive
// HTML heatmap and a PNG heatmap.
package report

import (
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
)

// Coverage counts the stocked diameters of every coordinate of one
// notation. Rows follow Sph and columns follow Cyl, both ascending.
type Coverage struct {
	Notation units.Notation
	Sph      []units.Diopter
	Cyl      []units.Diopter
	Counts   *mat.Dense
}

// CoverageMatrix builds the coverage of g. A stocked cell counts its
// diameters, and at least 1 so that a cell with no diameters still shows.
// Keys that do not parse or fall outside the notation's axes are skipped.
func CoverageMatrix(g *stockgrid.Grid) *Coverage {
	sph := units.SphValues()
	cyl := units.CylValues(g.Notation)
	slices.Sort(cyl)

	rowOf := make(map[units.Diopter]int, len(sph))
	for i, v := range sph {
		rowOf[v] = i
	}
	colOf := make(map[units.Diopter]int, len(cyl))
	for i, v := range cyl {
		colOf[v] = i
	}

	counts := mat.NewDense(len(sph), len(cyl), nil)
	for k, cell := range g.Cells {
		s, c, err := stockgrid.ParseKey(k)
		if err != nil {
			continue
		}
		r, okR := rowOf[s]
		col, okC := colOf[c]
		if !okR || !okC {
			continue
		}
		counts.Set(r, col, float64(max(1, len(cell.Diameters))))
	}
	return &Coverage{Notation: g.Notation, Sph: sph, Cyl: cyl, Counts: counts}
}

// Stocked is the number of coordinates with any stock.
func (c *Coverage) Stocked() int {
	n := 0
	rows, cols := c.Counts.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if c.Counts.At(i, j) > 0 {
				n++
			}
		}
	}
	return n
}

// Total is the sum of all counts.
func (c *Coverage) Total() float64 {
	return mat.Sum(c.Counts)
}

// Max is the largest single count, 0 for an empty grid.
func (c *Coverage) Max() float64 {
	return mat.Max(c.Counts)
}

// SphereTotals sums each row: the stocked diameters per sphere power.
func (c *Coverage) SphereTotals() []float64 {
	rows, cols := c.Counts.Dims()
	ones := make([]float64, cols)
	for i := range ones {
		ones[i] = 1
	}
	var out mat.VecDense
	out.MulVec(c.Counts, mat.NewVecDense(cols, ones))
	totals := make([]float64, rows)
	for i := range totals {
		totals[i] = out.AtVec(i)
	}
	return totals
}
