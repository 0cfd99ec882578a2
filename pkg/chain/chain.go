// Package chain provides fault-tolerant iterators that flatten sequences of
// sequences. An error raised by one link is returned from Next exactly once
// and does not corrupt the iterator: the next call continues from where the
// failure left off.
//
// Iterators follow the Next() (T, error) convention. The sentinel Done marks
// exhaustion:
//
//	for {
//		v, err := it.Next()
//		if errors.Is(err, chain.Done) {
//			break
//		}
//		if err != nil {
//			log.Printf("skipping: %v", err)
//			continue
//		}
//		use(v)
//	}
//
// A loop that returns on the first non-Done error simply stops consuming;
// both styles are valid.
package chain

import (
	"context"
	"errors"
)

// Done is returned by Next when an iterator has no more items.
var Done = errors.New("no more items in iterator")

// Iterator yields values one at a time.
type Iterator[T any] interface {
	Next() (T, error)
}

// ContextIterator is an Iterator whose Next blocks and accepts a context.
type ContextIterator[T any] interface {
	Next(ctx context.Context) (T, error)
}

// IteratorFunc adapts a function to the Iterator interface.
type IteratorFunc[T any] func() (T, error)

// Next calls f.
func (f IteratorFunc[T]) Next() (T, error) {
	return f()
}

// ContextIteratorFunc adapts a function to the ContextIterator interface.
type ContextIteratorFunc[T any] func(ctx context.Context) (T, error)

// Next calls f.
func (f ContextIteratorFunc[T]) Next(ctx context.Context) (T, error) {
	return f(ctx)
}

type sliceIterator[T any] struct {
	items []T
	idx   int
}

func (it *sliceIterator[T]) Next() (T, error) {
	if it.idx >= len(it.items) {
		var zero T
		return zero, Done
	}
	v := it.items[it.idx]
	it.idx++
	return v, nil
}

// FromSlice returns an Iterator over items.
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIterator[T]{items: items}
}

// FromSlices returns an outer Iterator whose elements iterate each slice.
func FromSlices[T any](slices ...[]T) Iterator[Iterator[T]] {
	subs := make([]Iterator[T], len(slices))
	for i, s := range slices {
		subs[i] = FromSlice(s)
	}
	return FromSlice(subs)
}

// Links returns an outer Iterator whose elements are produced by calling each
// link in turn. The position advances before the link is called, so a link
// that fails is skipped by the following Next rather than retried.
func Links[T any](links ...func() (Iterator[T], error)) Iterator[Iterator[T]] {
	idx := 0
	return IteratorFunc[Iterator[T]](func() (Iterator[T], error) {
		if idx >= len(links) {
			return nil, Done
		}
		link := links[idx]
		idx++
		return link()
	})
}

// Empty returns an exhausted Iterator.
func Empty[T any]() Iterator[T] {
	return FromSlice[T](nil)
}

// Collect drains it into a slice. It stops at the first error other than
// Done and returns the items gathered so far together with that error.
func Collect[T any](it Iterator[T]) ([]T, error) {
	var out []T
	for {
		v, err := it.Next()
		if errors.Is(err, Done) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

// CollectContext is Collect for a ContextIterator.
func CollectContext[T any](ctx context.Context, it ContextIterator[T]) ([]T, error) {
	var out []T
	for {
		v, err := it.Next(ctx)
		if errors.Is(err, Done) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}
