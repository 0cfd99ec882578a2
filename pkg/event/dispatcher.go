// Package event provides a small synchronous publish/subscribe dispatcher.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Handler receives dispatched values.
type Handler[T any] func(ctx context.Context, v T)

// Subscription identifies an attached handler.
type Subscription uint64

// Dispatcher delivers each dispatched value to every attached handler,
// sequentially and in attachment order, on the dispatching goroutine.
//
// A handler that panics is recovered and logged; the remaining handlers still
// receive the value. Attach and Detach may be called concurrently with
// Dispatch and take effect from the next Dispatch.
type Dispatcher[T any] struct {
	mu       sync.RWMutex
	next     Subscription
	handlers []entry[T]

	logger *slog.Logger

	// OnPanic, if set, is called with the recovered value of a panicking
	// handler.
	OnPanic func(sub Subscription, recovered any)
}

type entry[T any] struct {
	sub     Subscription
	handler Handler[T]
}

// NewDispatcher returns a Dispatcher. A nil logger discards panic reports.
func NewDispatcher[T any](logger *slog.Logger) *Dispatcher[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher[T]{logger: logger}
}

// Attach registers h and returns its subscription.
func (d *Dispatcher[T]) Attach(h Handler[T]) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.next++
	d.handlers = append(d.handlers, entry[T]{sub: d.next, handler: h})
	return d.next
}

// Detach removes the handler registered under sub. It reports whether a
// handler was removed.
func (d *Dispatcher[T]) Detach(sub Subscription) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, e := range d.handlers {
		if e.sub == sub {
			// Copy so snapshots held by an in-flight Dispatch stay intact.
			handlers := make([]entry[T], 0, len(d.handlers)-1)
			handlers = append(handlers, d.handlers[:i]...)
			d.handlers = append(handlers, d.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of attached handlers.
func (d *Dispatcher[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// Dispatch delivers v to every attached handler.
func (d *Dispatcher[T]) Dispatch(ctx context.Context, v T) {
	d.mu.RLock()
	handlers := d.handlers
	d.mu.RUnlock()

	for _, e := range handlers {
		d.invoke(ctx, e, v)
	}
}

func (d *Dispatcher[T]) invoke(ctx context.Context, e entry[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				"subscription", uint64(e.sub),
				"panic", fmt.Sprint(r),
			)
			if d.OnPanic != nil {
				d.OnPanic(e.sub, r)
			}
		}
	}()
	e.handler(ctx, v)
}
