// Package stream turns a cursor-paginated resource into a long-running stream
// of newly appearing items, built purely on polling.
//
// A Stream first primes itself with one page whose items become the "already
// seen" baseline, then polls forever. Each poll requests a page sized to the
// recently observed rate of new items, dispatches items whose identity has not
// been seen, and waits a jittered delay that grows while fetches fail.
//
//	s, err := stream.New(paginator, func(p *types.Post) string { return p.Name }, nil)
//	if err != nil {
//		return err
//	}
//	s.Output.Attach(func(ctx context.Context, p *types.Post) { fmt.Println(p.Title) })
//	s.Errors.Attach(func(ctx context.Context, err error) { log.Print(err) })
//	return s.Run(ctx) // returns ctx.Err() once ctx is cancelled
//
// Deduplication only covers the last Config.Memory identities; an item that
// reappears after being evicted is dispatched again.
package stream

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jamesprial/go-reddit-stream/pkg/boundedset"
	"github.com/jamesprial/go-reddit-stream/pkg/errors"
	"github.com/jamesprial/go-reddit-stream/pkg/event"
	"github.com/jamesprial/go-reddit-stream/pkg/pagination"
)

// Stream polls a paginator and dispatches items it has not seen before.
// T is the item type and K the identity used for deduplication.
type Stream[T any, K comparable] struct {
	// Output receives every newly discovered item, in page order.
	Output *event.Dispatcher[T]
	// Errors receives a *errors.FetchError for every failed fetch.
	Errors *event.Dispatcher[error]

	paginator pagination.CursorPaginator[T]
	resetter  pagination.Resettable
	extract   func(T) K
	cfg       Config
	logger    *slog.Logger
	seen      *boundedset.Set[K]

	tunaLimit float64
	delay     time.Duration
	backtrack int
	failures  int

	started atomic.Bool

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// New returns a Stream over p. p must also implement pagination.Resettable.
// extract maps an item to its identity. A nil cfg uses DefaultConfig.
//
// The stream owns p from now on: nothing else may fetch from it or change its
// limit or cursors while the stream runs.
func New[T any, K comparable](p pagination.CursorPaginator[T], extract func(T) K, cfg *Config) (*Stream[T, K], error) {
	if p == nil {
		return nil, &errors.ArgumentError{Argument: "paginator", Message: "cannot be nil"}
	}
	resetter, ok := p.(pagination.Resettable)
	if !ok {
		return nil, &errors.ArgumentError{Argument: "paginator", Message: "must implement Resettable"}
	}
	if extract == nil {
		return nil, &errors.ArgumentError{Argument: "extract", Message: "cannot be nil"}
	}

	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := cfg.withDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	seen, err := boundedset.New[K](nil, c.Memory)
	if err != nil {
		return nil, err
	}

	if c.Name == "" {
		c.Name = uuid.NewString()
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("stream", c.Name)

	return &Stream[T, K]{
		Output:    event.NewDispatcher[T](logger),
		Errors:    event.NewDispatcher[error](logger),
		paginator: p,
		resetter:  resetter,
		extract:   extract,
		cfg:       c,
		logger:    logger,
		seen:      seen,
		tunaLimit: float64(c.MaxLimit),
		delay:     c.BasePollInterval,
		sleep:     sleepContext,
		jitter:    rand.Float64,
	}, nil
}

// Name returns the stream's log label.
func (s *Stream[T, K]) Name() string {
	return s.cfg.Name
}

// Run primes the stream and polls until ctx is cancelled, then returns
// ctx.Err(). Fetch failures never end Run. A Stream can only be run once.
func (s *Stream[T, K]) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return &errors.StateError{Operation: "Run", Message: "stream already started"}
	}

	if err := s.prime(ctx); err != nil {
		return err
	}

	runtime.Gosched()
	if err := ctx.Err(); err != nil {
		return err
	}

	for {
		if err := s.poll(ctx); err != nil {
			return err
		}
	}
}

// prime fetches until a non-empty page arrives and marks its items as seen
// without dispatching them.
func (s *Stream[T, K]) prime(ctx context.Context) error {
	s.paginator.SetLimit(s.cfg.MaxLimit)

	var baseline []T
	for {
		items, err := s.paginator.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.fail(ctx, err)
			if err := s.sleep(ctx, s.jittered(s.delay)); err != nil {
				return err
			}
			continue
		}
		if len(items) > 0 {
			baseline = items
			break
		}

		s.logger.Debug("priming page empty, retrying")
		if err := s.sleep(ctx, s.jittered(s.cfg.BasePollInterval)); err != nil {
			return err
		}
	}

	s.failures = 0
	s.delay = s.cfg.BasePollInterval
	s.resetter.Reset()
	for _, item := range baseline {
		s.seen.Add(s.extract(item))
	}

	s.logger.Debug("stream primed", "baseline", len(baseline))
	return nil
}

// poll runs one iteration of the main loop, ending with its sleep.
func (s *Stream[T, K]) poll(ctx context.Context) error {
	limit := max(int(math.Round(s.tunaLimit)), 1)
	s.paginator.SetLimit(limit)

	retrieved, err := s.paginator.Fetch(ctx)
	fetched := err == nil
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.fail(ctx, err)
		retrieved = nil
	}

	selection := s.selectUnseen(retrieved)
	for _, item := range selection {
		s.Output.Dispatch(ctx, item)
	}

	s.backtrack += len(selection)
	if len(selection) < limit || s.backtrack > s.cfg.BacktrackDepth {
		s.logger.Debug("resetting paginator",
			"selected", len(selection),
			"limit", limit,
			"backtrack", s.backtrack,
		)
		s.resetter.Reset()
		s.backtrack = 0
	}

	if fetched {
		s.adapt(len(selection), limit)
		s.failures = 0
		s.delay = s.cfg.BasePollInterval
	}

	wait := s.jittered(s.delay)
	if s.paginator.Cursor() != "" {
		wait = s.cfg.DrainInterval
	}
	return s.sleep(ctx, wait)
}

// selectUnseen returns the items whose identity is not in the seen window, in
// order, recording each as seen.
func (s *Stream[T, K]) selectUnseen(items []T) []T {
	var selection []T
	for _, item := range items {
		id := s.extract(item)
		if s.seen.Contains(id) {
			continue
		}
		s.seen.Add(id)
		selection = append(selection, item)
	}
	return selection
}

// adapt steers the requested page size toward the observed rate of new items.
func (s *Stream[T, K]) adapt(selected, limit int) {
	maxLimit := float64(s.cfg.MaxLimit)
	switch {
	case selected == 0:
		s.tunaLimit = max(s.tunaLimit/2, 1)
	case selected >= limit:
		s.tunaLimit = min(2*s.tunaLimit, maxLimit)
	default:
		s.tunaLimit = min(s.cfg.TargetLimitMultiplier*float64(selected), maxLimit)
	}
}

// fail reports a fetch error and grows the delay.
func (s *Stream[T, K]) fail(ctx context.Context, err error) {
	s.failures++
	s.delay = min(time.Duration(math.Round(float64(s.delay)*s.cfg.BackoffFactor)), s.cfg.MaxPollInterval)

	s.logger.Warn("fetch failed",
		"attempt", s.failures,
		"next_delay", s.delay,
		"error", err,
	)
	s.Errors.Dispatch(ctx, &errors.FetchError{Attempt: s.failures, Err: err})
}

// jittered scales d by a uniform factor in [1-J, 1+J].
func (s *Stream[T, K]) jittered(d time.Duration) time.Duration {
	j := s.cfg.JitterFactor
	return time.Duration(math.Round(float64(d) * (1 - j + 2*j*s.jitter())))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
