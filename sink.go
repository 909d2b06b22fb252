package wrap

import (
	"context"
	"time"
)

// Sink receives one timing report per call of a Timed-wrapped method.
// It is called after the original body returns; the duration brackets the
// original call only, not wrapper bookkeeping.
type Sink interface {
	OnCall(ctx context.Context, method string, dur time.Duration, err error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, method string, dur time.Duration, err error)

// OnCall implements Sink.
func (f SinkFunc) OnCall(ctx context.Context, method string, dur time.Duration, err error) {
	if f == nil {
		return
	}
	f(ctx, method, dur, err)
}
