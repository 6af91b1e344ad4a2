package editor

import (
	"fmt"

	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
)

// Mode is the editing tool the operator has selected.
type Mode int

const (
	ModeSelect Mode = iota
	ModeRectangle
	ModeTriangle
	ModeQuickFill
	ModeErase
)

var modeNames = [...]string{
	ModeSelect:    "select",
	ModeRectangle: "rectangle",
	ModeTriangle:  "triangle",
	ModeQuickFill: "quickfill",
	ModeErase:     "erase",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode maps a mode name to its Mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown edit mode %q", s)
}

// Point is a grid coordinate resolved from a pointer position.
type Point struct {
	Sph units.Diopter
	Cyl units.Diopter
}

// Key returns the cell key of p.
func (p Point) Key() stockgrid.Key {
	return stockgrid.MakeKey(p.Sph, p.Cyl)
}

// dragHandler is one row of the drag transition table. A nil func means the
// mode does nothing at that step.
type dragHandler struct {
	start func(s *Session, p Point)
	move  func(s *Session, p Point)
	end   func(s *Session)
	// previews reports whether the drag rectangle replaces the selection
	// while the pointer is held.
	previews bool
}

// Triangle and quick-fill are applied from toolbar parameters, so dragging
// in those modes only tracks the pointer.
var dragHandlers = map[Mode]dragHandler{
	ModeSelect: {
		start: func(s *Session, p Point) { s.selection.Toggle(p.Key()) },
	},
	ModeRectangle: {
		end: func(s *Session) {
			if preview := rectanglePreview(s.grid.Notation, s.drag.anchor, s.drag.current); preview.Len() > 0 {
				s.selection = preview
			}
		},
		previews: true,
	},
	ModeTriangle:  {},
	ModeQuickFill: {},
	ModeErase: {
		start: func(s *Session, p Point) { s.deleteCell(p.Key()) },
		move:  func(s *Session, p Point) { s.deleteCell(p.Key()) },
	},
}

// rectanglePreview is the set of keys covered by the closed sph x cyl box
// spanned by a and b, using the axis values of notation n.
func rectanglePreview(n units.Notation, a, b Point) Selection {
	sel := Selection{}
	for _, sph := range units.Between(units.SphValues(), a.Sph, b.Sph) {
		for _, cyl := range units.Between(units.CylValues(n), a.Cyl, b.Cyl) {
			sel.Add(stockgrid.MakeKey(sph, cyl))
		}
	}
	return sel
}
