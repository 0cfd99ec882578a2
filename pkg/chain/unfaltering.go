package chain

import (
	"context"
	"errors"
)

// Unfaltering flattens an iterator of iterators into a single sequence.
//
// When Current is exhausted the next sub-iterator is pulled from the outer
// source. If pulling fails, the error is returned and the outer source keeps
// its position. An error from Current itself is returned with Current left in
// place, so the following Next asks the same sub-iterator again.
type Unfaltering[T any] struct {
	outer Iterator[Iterator[T]]

	// Current is the sub-iterator being drained. It may be replaced at any
	// time; nil means "pull from the outer source".
	Current Iterator[T]
}

// NewUnfaltering returns an Unfaltering over outer.
func NewUnfaltering[T any](outer Iterator[Iterator[T]]) *Unfaltering[T] {
	return &Unfaltering[T]{outer: outer}
}

// Next returns the next item of the flattened sequence.
func (u *Unfaltering[T]) Next() (T, error) {
	var zero T
	for {
		if u.Current != nil {
			v, err := u.Current.Next()
			if err == nil {
				return v, nil
			}
			if !errors.Is(err, Done) {
				return zero, err
			}
			u.Current = nil
		}

		sub, err := u.outer.Next()
		if err != nil {
			return zero, err
		}
		u.Current = sub
	}
}

// UnfalteringContext is the context-aware form of Unfaltering, for outer and
// inner sources that block on I/O.
type UnfalteringContext[T any] struct {
	outer ContextIterator[ContextIterator[T]]

	// Current is the sub-iterator being drained; nil means "pull next".
	Current ContextIterator[T]
}

// NewUnfalteringContext returns an UnfalteringContext over outer.
func NewUnfalteringContext[T any](outer ContextIterator[ContextIterator[T]]) *UnfalteringContext[T] {
	return &UnfalteringContext[T]{outer: outer}
}

// Next returns the next item of the flattened sequence.
func (u *UnfalteringContext[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		if u.Current != nil {
			v, err := u.Current.Next(ctx)
			if err == nil {
				return v, nil
			}
			if !errors.Is(err, Done) {
				return zero, err
			}
			u.Current = nil
		}

		sub, err := u.outer.Next(ctx)
		if err != nil {
			return zero, err
		}
		u.Current = sub
	}
}
