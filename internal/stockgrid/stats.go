package stockgrid

import (
	"encoding/json"
	"slices"
	"strconv"
)

// Stats summarises a cell map for display.
type Stats struct {
	// Total counts keys present in the map, whatever their Active flag.
	Total int
	// ByDiameter counts, per diameter, the cells that list it.
	ByDiameter map[float64]int
}

// ComputeStats derives Stats from cells. A cell contributes once to each
// distinct diameter it lists.
func ComputeStats(cells Cells) Stats {
	st := Stats{Total: len(cells), ByDiameter: make(map[float64]int)}
	for _, c := range cells {
		seen := make(map[float64]bool, len(c.Diameters))
		for _, d := range c.Diameters {
			if seen[d] {
				continue
			}
			seen[d] = true
			st.ByDiameter[d]++
		}
	}
	return st
}

// Diameters returns the diameters present in ByDiameter in ascending order.
func (s Stats) Diameters() []float64 {
	out := make([]float64, 0, len(s.ByDiameter))
	for d := range s.ByDiameter {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// MarshalJSON writes diameters as object keys ("65": 2).
func (s Stats) MarshalJSON() ([]byte, error) {
	by := make(map[string]int, len(s.ByDiameter))
	for d, n := range s.ByDiameter {
		by[strconv.FormatFloat(d, 'f', -1, 64)] = n
	}
	return json.Marshal(struct {
		Total      int            `json:"total"`
		ByDiameter map[string]int `json:"byDiameter"`
	}{s.Total, by})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw struct {
		Total      int            `json:"total"`
		ByDiameter map[string]int `json:"byDiameter"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Total = raw.Total
	s.ByDiameter = make(map[float64]int, len(raw.ByDiameter))
	for k, n := range raw.ByDiameter {
		d, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return err
		}
		s.ByDiameter[d] = n
	}
	return nil
}
