package pagination

import (
	"context"
	"errors"

	"github.com/jamesprial/go-reddit-stream/pkg/chain"
)

// ChainingIterator flattens the pages of a CursorPaginator into one sequence
// of items, optionally capped at a total amount. Near the cap it shrinks the
// paginator's limit so the last request does not over-fetch.
type ChainingIterator[T any] struct {
	ctx       context.Context
	paginator CursorPaginator[T]
	amount    int
	count     int

	// Current holds the unread remainder of the last fetched page.
	Current chain.Iterator[T]
}

// NewChainingIterator returns an iterator over the items of p. A negative
// amount means no cap. ctx is used for every page fetch.
func NewChainingIterator[T any](ctx context.Context, p CursorPaginator[T], amount int) *ChainingIterator[T] {
	return &ChainingIterator[T]{
		ctx:       ctx,
		paginator: p,
		amount:    amount,
	}
}

// Next returns the next item, fetching a new page when the current one is
// used up. A failed fetch is returned as is and retried by the next call.
func (it *ChainingIterator[T]) Next() (T, error) {
	var zero T
	for {
		if it.amount >= 0 && it.count >= it.amount {
			return zero, chain.Done
		}

		if it.Current != nil {
			v, err := it.Current.Next()
			if err == nil {
				it.count++
				return v, nil
			}
			if !errors.Is(err, chain.Done) {
				return zero, err
			}
			it.Current = nil
		}

		if !it.paginator.NextAvailable() {
			return zero, chain.Done
		}

		if it.amount >= 0 {
			remaining := it.amount - it.count
			if limit := it.paginator.Limit(); limit <= 0 || remaining < limit {
				it.paginator.SetLimit(remaining)
			}
		}

		items, err := it.paginator.Fetch(it.ctx)
		if err != nil {
			return zero, err
		}
		if len(items) == 0 {
			return zero, chain.Done
		}
		it.Current = chain.FromSlice(items)
	}
}

// Count returns the number of items returned so far.
func (it *ChainingIterator[T]) Count() int {
	return it.count
}

// Paginator returns the underlying paginator.
func (it *ChainingIterator[T]) Paginator() CursorPaginator[T] {
	return it.paginator
}
