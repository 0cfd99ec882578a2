// Package pagination models bidirectional, cursor-based paged resources and
// flattens them into item sequences.
package pagination

import "context"

// CursorPaginator is a cursor-paged resource that can be fetched one page at
// a time in either direction.
//
// Fetch performs exactly one page request using the current limit, cursor and
// direction. Cursor state is only updated by a successful Fetch, so a failed
// Fetch can be retried as is.
type CursorPaginator[T any] interface {
	// Limit is the requested page size. Zero leaves it to the server.
	Limit() int
	SetLimit(limit int)

	// Forward reports whether pages are fetched with the after cursor.
	Forward() bool
	SetForward(forward bool)

	// NextAvailable reports whether the server may have more items in the
	// active direction.
	NextAvailable() bool

	// Cursor is the cursor of the active direction.
	Cursor() string
	SetCursor(cursor string)

	Fetch(ctx context.Context) ([]T, error)
}

// Resettable is implemented by paginators that can forget acquired cursor
// state, making the next Fetch behave as if the paginator was never used.
type Resettable interface {
	Reset()
}

// Cursors holds the cursor state of a paginator. It implements every method
// of CursorPaginator except Fetch and is meant to be embedded. Use NewCursors;
// the zero value reports nothing available.
type Cursors struct {
	limit int

	after     string
	before    string
	hasAfter  bool
	hasBefore bool
	backward  bool
}

// NewCursors returns a fresh forward cursor state with the given limit.
func NewCursors(limit int) Cursors {
	return Cursors{limit: limit, hasAfter: true, hasBefore: true}
}

func (c *Cursors) Limit() int         { return c.limit }
func (c *Cursors) SetLimit(limit int) { c.limit = limit }

func (c *Cursors) Forward() bool           { return !c.backward }
func (c *Cursors) SetForward(forward bool) { c.backward = !forward }

// NextAvailable reports whether a cursor or a "has more" flag is set in the
// active direction.
func (c *Cursors) NextAvailable() bool {
	if c.backward {
		return c.before != "" || c.hasBefore
	}
	return c.after != "" || c.hasAfter
}

// Cursor returns the cursor of the active direction.
func (c *Cursors) Cursor() string {
	if c.backward {
		return c.before
	}
	return c.after
}

// SetCursor replaces the cursor of the active direction.
func (c *Cursors) SetCursor(cursor string) {
	if c.backward {
		c.before = cursor
	} else {
		c.after = cursor
	}
}

// After and Before expose both cursors regardless of direction.
func (c *Cursors) After() string  { return c.after }
func (c *Cursors) Before() string { return c.before }

// Advance records the outcome of a successful fetch in the active direction.
func (c *Cursors) Advance(cursor string, hasMore bool) {
	if c.backward {
		c.before = cursor
		c.hasBefore = hasMore
	} else {
		c.after = cursor
		c.hasAfter = hasMore
	}
}

// Reset forgets both cursors. The limit and direction are kept.
func (c *Cursors) Reset() {
	c.after = ""
	c.before = ""
	c.hasAfter = true
	c.hasBefore = true
}
