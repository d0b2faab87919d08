package keys

import "slices"

// Set is a duplicate-free collection of held keys that remembers insertion
// order. The zero value is ready to use. Set is not safe for concurrent use;
// owners guard it with their own lock.
type Set struct {
	order []Name
	index map[Name]struct{}
}

// Add inserts name and reports whether it was not already present.
func (s *Set) Add(name Name) bool {
	if s.index == nil {
		s.index = make(map[Name]struct{})
	}
	if _, exists := s.index[name]; exists {
		return false
	}
	s.index[name] = struct{}{}
	s.order = append(s.order, name)
	return true
}

// Remove deletes name and reports whether it was present.
func (s *Set) Remove(name Name) bool {
	if _, exists := s.index[name]; !exists {
		return false
	}
	delete(s.index, name)
	if i := slices.Index(s.order, name); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return true
}

// Has reports whether name is held.
func (s *Set) Has(name Name) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of held keys.
func (s *Set) Len() int { return len(s.order) }

// Clear removes every key.
func (s *Set) Clear() {
	s.order = nil
	s.index = nil
}

// Names returns a copy of the held keys in insertion order.
func (s *Set) Names() []Name {
	return slices.Clone(s.order)
}
