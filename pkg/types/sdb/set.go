package sdb

import "sort"

// OrderedSet is a duplicate-free collection of strings whose output order is
// always ascending, independent of insertion order.
type OrderedSet struct {
	items map[string]struct{}
}

// NewOrderedSet returns a set containing items.
func NewOrderedSet(items ...string) *OrderedSet {
	s := &OrderedSet{items: make(map[string]struct{}, len(items))}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts item and reports whether it was not present before.
func (s *OrderedSet) Add(item string) bool {
	if s.items == nil {
		s.items = make(map[string]struct{})
	}
	if _, ok := s.items[item]; ok {
		return false
	}
	s.items[item] = struct{}{}
	return true
}

// Union adds every element of other to s.
func (s *OrderedSet) Union(other *OrderedSet) {
	if other == nil {
		return
	}
	for it := range other.items {
		s.Add(it)
	}
}

// Contains reports whether item is in the set.
func (s *OrderedSet) Contains(item string) bool {
	if s == nil {
		return false
	}
	_, ok := s.items[item]
	return ok
}

// Len returns the number of elements.
func (s *OrderedSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Sorted returns the elements in ascending lexicographic order.  The result
// is never nil so that it encodes as an empty JSON array.
func (s *OrderedSet) Sorted() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, 0, len(s.items))
	for it := range s.items {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

//Personal.AI order the ending
