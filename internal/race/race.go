// Package race runs competing operations and keeps whichever succeeds first.
package race

import (
	"context"
	"errors"
	"time"
)

// Func is one branch of a race. It must return promptly once ctx is done.
type Func[T any] func(ctx context.Context) (T, error)

type result[T any] struct {
	value T
	err   error
}

// First runs every fn concurrently and returns the first successful value.
// Losing branches have their context cancelled and are not waited for, so
// their side effects must be safe to abandon half done. When every branch
// fails the joined errors are returned.
func First[T any](ctx context.Context, fns ...Func[T]) (T, error) {
	var zero T
	if len(fns) == 0 {
		return zero, errors.New("race: no branches")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so abandoned branches never block on send.
	results := make(chan result[T], len(fns))
	for _, fn := range fns {
		go func(fn Func[T]) {
			v, err := fn(ctx)
			results <- result[T]{value: v, err: err}
		}(fn)
	}

	errs := make([]error, 0, len(fns))
	for range fns {
		select {
		case <-ctx.Done():
			return zero, context.Cause(ctx)
		case r := <-results:
			if r.err == nil {
				return r.value, nil
			}
			errs = append(errs, r.err)
		}
	}
	return zero, errors.Join(errs...)
}

// Timeout wraps fn so it fails with context.DeadlineExceeded after d. The
// wrapper returns at the deadline even if fn has not; fn keeps its
// cancelled context and is abandoned.
func Timeout[T any](d time.Duration, fn Func[T]) Func[T] {
	return func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		done := make(chan result[T], 1)
		go func() {
			v, err := fn(ctx)
			done <- result[T]{value: v, err: err}
		}()

		select {
		case r := <-done:
			return r.value, r.err
		case <-ctx.Done():
			var zero T
			return zero, context.Cause(ctx)
		}
	}
}
