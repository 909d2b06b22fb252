package wrap

import (
	"context"
	"time"
)

// PolicyKind names the behavior variant applied by a wrapper.
type PolicyKind string

const (
	KindMemoize PolicyKind = "memoize"
	KindShared  PolicyKind = "shared_memoize"
	KindTimed   PolicyKind = "timed"
	KindPost    PolicyKind = "post"
)

// boundFn is the internal callable shape: a method body with its receiver
// passed explicitly so one wrapper serves every instance of the type.
type boundFn func(ctx context.Context, recv any, args []any) (any, error)

// wrapSite carries the per-type context a policy needs when it wraps a
// method: the qualified names for reporting and keying, and the type's slot
// table for per-instance state.
type wrapSite struct {
	typeName string
	method   string
	slots    *slotTable
}

func (s wrapSite) qualified() string {
	return s.typeName + "." + s.method
}

// Policy produces the replacement callable for a designated method.
type Policy interface {
	Kind() PolicyKind

	wrap(site wrapSite, next boundFn) boundFn
}

// Memoize returns the one-shot caching policy: the first successful call per
// instance computes and stores the result, every later call returns the
// stored value without re-executing the body. Arguments are ignored by
// design, so the policy only suits methods whose result does not depend on
// them. A failed call never populates the slot; the next call retries.
// @group Policies
//
// Example: compute once per instance
//
//	r := wrap.NewRegistry()
//	_ = r.Designate(report, "Total", wrap.Memoize())
//	_ = r.Install(report)
//	first, _ := r.Call(ctx, report, "Total")
//	second, _ := r.Call(ctx, report, "Total") // cached, body not re-run
//	fmt.Println(first == second) // true
func Memoize() Policy {
	return memoizePolicy{}
}

type memoizePolicy struct{}

func (memoizePolicy) Kind() PolicyKind { return KindMemoize }

func (memoizePolicy) wrap(site wrapSite, next boundFn) boundFn {
	return func(ctx context.Context, recv any, args []any) (any, error) {
		slot := site.slots.acquire(recv, site.method)
		// Exclusive-acquire-and-check-again: the body runs at most once per
		// instance even when first calls race.
		slot.mu.Lock()
		defer slot.mu.Unlock()
		if slot.computed {
			return slot.value, nil
		}
		value, err := next(ctx, recv, args)
		if err != nil {
			return nil, err
		}
		slot.value = value
		slot.computed = true
		return value, nil
	}
}

// Timed returns the passthrough instrumentation policy: every call executes
// the original body and reports the elapsed wall-clock duration through sink.
// The measurement brackets the original call only.
// @group Policies
//
// Example: report durations through a sink
//
//	sink := wrap.SinkFunc(func(_ context.Context, method string, dur time.Duration, err error) {
//		fmt.Println(method, dur >= 0, err)
//	})
//	r := wrap.NewRegistry()
//	_ = r.Designate(svc, "Fetch", wrap.Timed(sink))
//	_ = r.Install(svc)
func Timed(sink Sink) Policy {
	return timedPolicy{sink: sink}
}

type timedPolicy struct {
	sink Sink
}

func (timedPolicy) Kind() PolicyKind { return KindTimed }

func (p timedPolicy) wrap(site wrapSite, next boundFn) boundFn {
	return func(ctx context.Context, recv any, args []any) (any, error) {
		start := time.Now()
		value, err := next(ctx, recv, args)
		dur := time.Since(start)
		if p.sink != nil {
			p.sink.OnCall(ctx, site.qualified(), dur, err)
		}
		return value, err
	}
}

// PostFunc transforms the result of a wrapped call. It receives the original
// value and error and may replace either.
type PostFunc func(ctx context.Context, method string, value any, err error) (any, error)

// Post returns a policy that applies a caller-supplied post-processing
// function after every call. The body always executes; fn decides what the
// caller sees.
// @group Policies
func Post(fn PostFunc) Policy {
	return postPolicy{fn: fn}
}

type postPolicy struct {
	fn PostFunc
}

func (postPolicy) Kind() PolicyKind { return KindPost }

func (p postPolicy) wrap(site wrapSite, next boundFn) boundFn {
	return func(ctx context.Context, recv any, args []any) (any, error) {
		value, err := next(ctx, recv, args)
		if p.fn == nil {
			return value, err
		}
		return p.fn(ctx, site.qualified(), value, err)
	}
}
