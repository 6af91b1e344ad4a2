package editor

import (
	"slices"

	"github.com/banshee-data/stockgrid/internal/stockgrid"
)

// Selection is a set of cell keys picked during an editing session.
type Selection map[stockgrid.Key]struct{}

// Add inserts k.
func (s Selection) Add(k stockgrid.Key) { s[k] = struct{}{} }

// Toggle inserts k if absent and removes it otherwise.
func (s Selection) Toggle(k stockgrid.Key) {
	if _, ok := s[k]; ok {
		delete(s, k)
		return
	}
	s[k] = struct{}{}
}

// Has reports membership.
func (s Selection) Has(k stockgrid.Key) bool {
	_, ok := s[k]
	return ok
}

// Len is the number of selected keys.
func (s Selection) Len() int { return len(s) }

// Keys returns the selected keys in lexical order.
func (s Selection) Keys() []stockgrid.Key {
	keys := make([]stockgrid.Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone copies the set.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}
