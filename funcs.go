package wrap

import (
	"context"
	"sync"
	"time"
)

// MemoizeFunc wraps fn with a one-shot cache: the first successful call
// computes the value, every later call returns it without re-executing fn.
// Failed calls retry. Concurrent first calls execute fn at most once.
// @group Functions
//
// Example: memoize a typed function
//
//	calls := 0
//	load := wrap.MemoizeFunc(func(context.Context) (int, error) {
//		calls++
//		return 42, nil
//	})
//	a, _ := load(ctx)
//	b, _ := load(ctx)
//	fmt.Println(a, b, calls) // 42 42 1
func MemoizeFunc[T any](fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	var (
		mu       sync.Mutex
		computed bool
		value    T
	)
	return func(ctx context.Context) (T, error) {
		mu.Lock()
		defer mu.Unlock()
		if computed {
			return value, nil
		}
		v, err := fn(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		value = v
		computed = true
		return value, nil
	}
}

// TimedFunc wraps fn so every call reports its elapsed duration through sink
// under name. The value and error pass through unchanged.
// @group Functions
//
// Example: time a typed function
//
//	load := wrap.TimedFunc("load", sink, func(context.Context) (string, error) {
//		return "ok", nil
//	})
//	v, _ := load(ctx)
//	fmt.Println(v) // ok
func TimedFunc[T any](name string, sink Sink, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		start := time.Now()
		v, err := fn(ctx)
		dur := time.Since(start)
		if sink != nil {
			sink.OnCall(ctx, name, dur, err)
		}
		return v, err
	}
}
