// Package units provides diopter values, cylinder notations and the fixed
// ophthalmic value ranges that stock grids are laid out on.
package units

import (
	"errors"
	"fmt"
	"strings"
)

// Notation is the cylinder sign convention a prescription or grid is written in.
type Notation string

// Notation constants
const (
	Minus Notation = "minus"
	Plus  Notation = "plus"
)

// ValidNotations contains all valid notation values
var ValidNotations = []Notation{Plus, Minus}

// ErrUnknownNotation is returned when parsing a notation other than plus or minus.
var ErrUnknownNotation = errors.New("unknown cylinder notation")

// IsValid checks if the given notation is in the list of valid notations
func IsValid(notation string) bool {
	for _, n := range ValidNotations {
		if Notation(notation) == n {
			return true
		}
	}
	return false
}

// GetValidNotationsString returns a comma-separated string of valid notations for error messages
func GetValidNotationsString() string {
	names := make([]string, len(ValidNotations))
	for i, n := range ValidNotations {
		names[i] = string(n)
	}
	return strings.Join(names, ", ")
}

// ParseNotation parses a stored or user-supplied notation.
func ParseNotation(s string) (Notation, error) {
	if !IsValid(s) {
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnknownNotation, s, GetValidNotationsString())
	}
	return Notation(s), nil
}

// Flip returns the other notation.
func (n Notation) Flip() Notation {
	if n == Minus {
		return Plus
	}
	return Minus
}

// Accepts reports whether cyl already follows the sign convention of n.
// Zero cylinder is valid in both.
func (n Notation) Accepts(cyl Diopter) bool {
	if n == Minus {
		return cyl <= 0
	}
	return cyl >= 0
}
