package chain

// StubbornCaller turns an iterator of callables into an iterator of their
// results. A callable that fails stays in Current and is invoked again by the
// next call to Next; it is cleared only once it succeeds. Callers that want to
// skip a failing callable set Current to nil.
type StubbornCaller[T any] struct {
	calls Iterator[func() (T, error)]

	// Current is the callable that will be invoked by the next Next.
	Current func() (T, error)
}

// NewStubbornCaller returns a StubbornCaller over calls.
func NewStubbornCaller[T any](calls Iterator[func() (T, error)]) *StubbornCaller[T] {
	return &StubbornCaller[T]{calls: calls}
}

// Next invokes the current callable, drawing a new one from the underlying
// iterator first if none is pending.
func (s *StubbornCaller[T]) Next() (T, error) {
	if s.Current == nil {
		call, err := s.calls.Next()
		if err != nil {
			var zero T
			return zero, err
		}
		s.Current = call
	}

	v, err := s.Current()
	if err != nil {
		var zero T
		return zero, err
	}
	s.Current = nil
	return v, nil
}
