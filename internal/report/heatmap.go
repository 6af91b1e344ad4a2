package report

import (
	"fmt"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// coverageGrid adapts a Coverage to plotter.GridXYZ.
type coverageGrid struct{ c *Coverage }

func (g coverageGrid) Dims() (c, r int) {
	rows, cols := g.c.Counts.Dims()
	return cols, rows
}
func (g coverageGrid) Z(c, r int) float64 { return g.c.Counts.At(r, c) }
func (g coverageGrid) X(c int) float64    { return g.c.Cyl[c].Float() }
func (g coverageGrid) Y(r int) float64    { return g.c.Sph[r].Float() }

// Plot builds a gonum heatmap of c.
func Plot(c *Coverage, title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = fmt.Sprintf("Cyl (%s)", c.Notation)
	p.Y.Label.Text = "Sph"

	h := plotter.NewHeatMap(coverageGrid{c}, palette.Heat(12, 1))
	h.Min = 0
	if h.Max <= h.Min {
		h.Max = h.Min + 1
	}
	p.Add(h)
	return p
}

// WritePNG renders the heatmap of c as PNG.
func WritePNG(w io.Writer, c *Coverage, title string) error {
	wt, err := Plot(c, title).WriterTo(6*vg.Inch, 14*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// SavePNG writes the heatmap of c to path.
func SavePNG(path string, c *Coverage, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WritePNG(f, c, title); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
