// Package boundedset provides a fixed-capacity set that forgets its oldest
// members first. Streams use it as a short-term "already seen" memory.
package boundedset

import (
	"iter"

	"github.com/hashicorp/golang-lru/simplelru"

	"github.com/jamesprial/go-reddit-stream/pkg/errors"
)

// Set is a set of at most Cap elements. When an insert pushes it over capacity
// the element inserted earliest is evicted, regardless of how often it has
// been looked up since. A Set is not safe for concurrent use.
type Set[T comparable] struct {
	capacity int
	// entries is nil when capacity is zero
	entries *simplelru.LRU
}

// New creates a Set with the given capacity and adds each element of initial
// in order. Early elements may already be evicted by later ones when initial
// is longer than capacity.
func New[T comparable](initial []T, capacity int) (*Set[T], error) {
	if capacity < 0 {
		return nil, &errors.ArgumentError{Argument: "capacity", Message: "must not be negative"}
	}

	s := &Set[T]{capacity: capacity}
	if capacity > 0 {
		entries, err := simplelru.NewLRU(capacity, nil)
		if err != nil {
			return nil, &errors.ArgumentError{Argument: "capacity", Message: err.Error()}
		}
		s.entries = entries
	}

	for _, v := range initial {
		s.Add(v)
	}
	return s, nil
}

// Add inserts v. Adding a present element is a no-op and does not change its
// eviction position.
func (s *Set[T]) Add(v T) {
	if s.entries == nil {
		return
	}
	// Contains does not touch recency, so the LRU order stays insertion order.
	if s.entries.Contains(v) {
		return
	}
	s.entries.Add(v, struct{}{})
}

// Contains reports whether v is in the set.
func (s *Set[T]) Contains(v T) bool {
	if s.entries == nil {
		return false
	}
	return s.entries.Contains(v)
}

// Discard removes v if present.
func (s *Set[T]) Discard(v T) {
	if s.entries == nil {
		return
	}
	s.entries.Remove(v)
}

// Len returns the number of elements.
func (s *Set[T]) Len() int {
	if s.entries == nil {
		return 0
	}
	return s.entries.Len()
}

// Cap returns the capacity.
func (s *Set[T]) Cap() int {
	return s.capacity
}

// All yields every element, oldest first.
func (s *Set[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if s.entries == nil {
			return
		}
		for _, k := range s.entries.Keys() {
			if !yield(k.(T)) {
				return
			}
		}
	}
}

// Ordering returns the elements oldest first.
func (s *Set[T]) Ordering() []T {
	if s.entries == nil {
		return nil
	}
	keys := s.entries.Keys()
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.(T))
	}
	return out
}
