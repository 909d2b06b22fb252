package wrap

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type zapSink struct {
	logger *zap.Logger
}

// NewZapSink returns a Sink that reports call durations through a zap logger.
// @group Sinks
//
// Example: structured timing reports
//
//	logger, _ := zap.NewProduction()
//	sink := wrap.NewZapSink(logger)
//	r := wrap.NewRegistry()
//	_ = r.Designate(svc, "Fetch", wrap.Timed(sink))
func NewZapSink(logger *zap.Logger) Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapSink{logger: logger}
}

func (s *zapSink) OnCall(_ context.Context, method string, dur time.Duration, err error) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.Duration("duration", dur),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		s.logger.Warn("wrapped call failed", fields...)
		return
	}
	s.logger.Info("wrapped call completed", fields...)
}
