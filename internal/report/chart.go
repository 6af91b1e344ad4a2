package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/stockgrid/internal/units"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// CoverageChart writes an HTML heatmap of c: cylinder across, sphere down,
// colour by number of stocked diameters.
func CoverageChart(w io.Writer, c *Coverage, title string) error {
	xs := make([]string, len(c.Cyl))
	for i, v := range c.Cyl {
		xs[i] = units.FormatDiopter(v)
	}
	ys := make([]string, len(c.Sph))
	for i, v := range c.Sph {
		ys[i] = units.FormatDiopter(v)
	}

	rows, cols := c.Counts.Dims()
	data := make([]opts.HeatMapData, 0, c.Stocked())
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			if v := c.Counts.At(r, col); v > 0 {
				data = append(data, opts.HeatMapData{Value: [3]interface{}{col, r, v}})
			}
		}
	}

	maxCount := c.Max()
	if maxCount < 1 {
		maxCount = 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "1400px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%s cylinder, %d stocked", c.Notation, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xs, Name: "Cyl", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ys, Name: "Sph", NameLocation: "middle", NameGap: 45}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxCount),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.SetXAxis(xs)
	hm.AddSeries("diameters", data)

	if err := hm.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
