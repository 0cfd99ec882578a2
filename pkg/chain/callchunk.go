package chain

import "context"

// CallChunk pairs a batch of input with the function that consumes the whole
// batch in one request.
type CallChunk[A, R any] struct {
	Args A
	Call func(ctx context.Context, args A) ([]R, error)
}

// Invoke performs the batched call.
func (c CallChunk[A, R]) Invoke(ctx context.Context) ([]R, error) {
	return c.Call(ctx, c.Args)
}

// Chunked splits items into batches of at most size elements, each bound to
// call. A size below 1 puts everything in one batch.
func Chunked[E, R any](items []E, size int, call func(ctx context.Context, batch []E) ([]R, error)) []CallChunk[[]E, R] {
	if len(items) == 0 {
		return nil
	}
	if size < 1 {
		size = len(items)
	}

	chunks := make([]CallChunk[[]E, R], 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, CallChunk[[]E, R]{Args: items[start:end], Call: call})
	}
	return chunks
}

// CallChunkChain flattens the results of a sequence of CallChunks. A chunk
// whose call fails stays pending in Caller, so the next call to Next retries
// it; results of chunks that already succeeded are never re-requested.
type CallChunkChain[A, R any] struct {
	Unfaltering[R]

	// Caller holds the chunk call currently pending, if any.
	Caller *StubbornCaller[Iterator[R]]
}

// NewCallChunkChain returns an iterator over the combined results of chunks.
// ctx is used for every chunk call.
func NewCallChunkChain[A, R any](ctx context.Context, chunks []CallChunk[A, R]) *CallChunkChain[A, R] {
	calls := make([]func() (Iterator[R], error), len(chunks))
	for i, chunk := range chunks {
		calls[i] = func() (Iterator[R], error) {
			results, err := chunk.Invoke(ctx)
			if err != nil {
				return nil, err
			}
			return FromSlice(results), nil
		}
	}

	c := &CallChunkChain[A, R]{
		Caller: NewStubbornCaller(FromSlice(calls)),
	}
	c.Unfaltering = Unfaltering[R]{outer: c.Caller}
	return c
}
