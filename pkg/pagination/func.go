package pagination

import "context"

// PageRequest describes one page fetch.
type PageRequest struct {
	Limit   int
	Cursor  string
	Forward bool
}

// Page is the result of one page fetch: the items in server order, the cursor
// to continue from in the same direction and whether the server has more.
type Page[T any] struct {
	Items   []T
	Cursor  string
	HasMore bool
}

// FetchFunc fetches a single page.
type FetchFunc[T any] func(ctx context.Context, req PageRequest) (Page[T], error)

// FuncPaginator is a resettable CursorPaginator backed by a FetchFunc.
type FuncPaginator[T any] struct {
	Cursors
	fetch FetchFunc[T]
}

// NewFuncPaginator returns a forward paginator with the given page limit.
func NewFuncPaginator[T any](limit int, fetch FetchFunc[T]) *FuncPaginator[T] {
	return &FuncPaginator[T]{
		Cursors: NewCursors(limit),
		fetch:   fetch,
	}
}

// Fetch requests one page and advances the cursor on success. An empty cursor
// fetches from the newest position.
func (p *FuncPaginator[T]) Fetch(ctx context.Context) ([]T, error) {
	page, err := p.fetch(ctx, PageRequest{
		Limit:   p.Limit(),
		Cursor:  p.Cursor(),
		Forward: p.Forward(),
	})
	if err != nil {
		return nil, err
	}

	p.Advance(page.Cursor, page.HasMore)
	return page.Items, nil
}

var (
	_ CursorPaginator[int] = (*FuncPaginator[int])(nil)
	_ Resettable           = (*FuncPaginator[int])(nil)
)
