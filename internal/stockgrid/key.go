package stockgrid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/banshee-data/stockgrid/internal/units"
)

// Key is the canonical identity of a grid coordinate, e.g. "-2.00_+1.00".
// Build keys with MakeKey only.
type Key string

// ErrMalformedKey is returned by ParseKey for strings outside the key grammar.
var ErrMalformedKey = errors.New("malformed cell key")

var keyPattern = regexp.MustCompile(`^[+-][0-9]+\.[0-9]{2}_[+-][0-9]+\.[0-9]{2}$`)

// MakeKey encodes a (sph, cyl) pair.
func MakeKey(sph, cyl units.Diopter) Key {
	return Key(units.FormatDiopter(sph) + "_" + units.FormatDiopter(cyl))
}

// ParseKey is the inverse of MakeKey. Only keys MakeKey could have produced
// for 0.25 multiples are accepted, so padded, negative-zero and off-step
// spellings of a coordinate are malformed.
func ParseKey(k Key) (sph, cyl units.Diopter, err error) {
	s := string(k)
	if !keyPattern.MatchString(s) {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	sphStr, cylStr, _ := strings.Cut(s, "_")
	sphF, err := strconv.ParseFloat(sphStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrMalformedKey, s, err)
	}
	cylF, err := strconv.ParseFloat(cylStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrMalformedKey, s, err)
	}
	sph, cyl = units.FromFloat(sphF), units.FromFloat(cylF)
	if !sph.OnStep() || !cyl.OnStep() {
		return 0, 0, fmt.Errorf("%w: %q is off the 0.25 step", ErrMalformedKey, s)
	}
	if MakeKey(sph, cyl) != k {
		return 0, 0, fmt.Errorf("%w: %q is not canonical", ErrMalformedKey, s)
	}
	return sph, cyl, nil
}

func (k Key) String() string { return string(k) }
