package markers

import "slices"

// Set holds the markers of a single selection epoch, keyed by id.
// It is not safe for concurrent use.
type Set struct {
	index map[string]int
	list  []Marker
}

// NewSet creates an empty marker set.
func NewSet() *Set {
	return &Set{index: make(map[string]int)}
}

// Add inserts m and reports whether it was new. Re-adding an id is a no-op.
func (s *Set) Add(m Marker) bool {
	if m.ID == "" {
		return false
	}
	if _, ok := s.index[m.ID]; ok {
		return false
	}
	s.index[m.ID] = len(s.list)
	s.list = append(s.list, m)
	return true
}

// AddRecords classifies and inserts records, returning only the markers that
// were actually added.
func (s *Set) AddRecords(records []Record) []Marker {
	var added []Marker
	for _, r := range records {
		m, ok := Classify(r)
		if !ok {
			continue
		}
		if s.Add(m) {
			added = append(added, m)
		}
	}
	return added
}

// Len returns the number of markers.
func (s *Set) Len() int {
	return len(s.list)
}

// Markers returns a copy of the markers in insertion order.
func (s *Set) Markers() []Marker {
	return slices.Clone(s.list)
}

// Groups clusters the markers by category.
func (s *Set) Groups() map[Category][]Marker {
	return Group(s.list)
}

// Group clusters markers by category, preserving order within a group.
func Group(ms []Marker) map[Category][]Marker {
	out := make(map[Category][]Marker)
	for _, m := range ms {
		out[m.Category] = append(out[m.Category], m)
	}
	return out
}
