package wrapfake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goforj/wrap"
)

// Op identifies a slot store operation for assertions.
type Op string

const (
	OpLoad   Op = "load"
	OpStore  Op = "store"
	OpForget Op = "forget"
	OpFlush  Op = "flush"
)

// Report is one captured timing report.
type Report struct {
	Method   string
	Duration time.Duration
	Err      error
}

// Fake bundles a deterministic in-memory slot store and a recording sink,
// plus assertion helpers, so wrapped code can be tested without external
// services or console capture.
type Fake struct {
	store   *countingStore
	mu      sync.Mutex
	counts  map[Op]map[string]int
	reports []Report
}

// New creates a Fake backed by an in-memory slot store.
func New() *Fake {
	f := &Fake{
		counts: make(map[Op]map[string]int),
	}
	f.store = &countingStore{
		inner:   wrap.NewMemorySlotStore(context.Background()),
		onCount: f.record,
	}
	return f
}

// Store returns the counting slot store to inject into code under test.
func (f *Fake) Store() wrap.SlotStore { return f.store }

// Sink returns a recording sink for Timed policies.
func (f *Fake) Sink() wrap.Sink {
	return wrap.SinkFunc(func(_ context.Context, method string, dur time.Duration, err error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.reports = append(f.reports, Report{Method: method, Duration: dur, Err: err})
	})
}

// Reports returns the captured timing reports in emission order.
func (f *Fake) Reports() []Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Report, len(f.reports))
	copy(out, f.reports)
	return out
}

// Reset clears recorded counts and reports.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[Op]map[string]int)
	f.reports = nil
}

// AssertCalled verifies key was touched by op the expected number of times.
func (f *Fake) AssertCalled(t *testing.T, op Op, key string, times int) {
	t.Helper()
	if got := f.Count(op, key); got != times {
		t.Fatalf("expected %s %q called %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures key was never touched by op.
func (f *Fake) AssertNotCalled(t *testing.T, op Op, key string) {
	t.Helper()
	if got := f.Count(op, key); got != 0 {
		t.Fatalf("expected %s %q not called, got %d", op, key, got)
	}
}

// AssertTotal ensures the total call count for an op matches times.
func (f *Fake) AssertTotal(t *testing.T, op Op, times int) {
	t.Helper()
	if got := f.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

// AssertReported verifies method produced the expected number of timing reports.
func (f *Fake) AssertReported(t *testing.T, method string, times int) {
	t.Helper()
	var got int
	for _, r := range f.Reports() {
		if r.Method == method {
			got++
		}
	}
	if got != times {
		t.Fatalf("expected %d reports for %s, got %d", times, method, got)
	}
}

// Count returns calls for op+key.
func (f *Fake) Count(op Op, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		return 0
	}
	return f.counts[op][key]
}

// Total returns total calls for an op across keys.
func (f *Fake) Total(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int
	for _, v := range f.counts[op] {
		sum += v
	}
	return sum
}

func (f *Fake) record(op Op, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		f.counts[op] = make(map[string]int)
	}
	f.counts[op][key]++
}

// countingStore wraps a SlotStore to record calls.
type countingStore struct {
	inner   wrap.SlotStore
	onCount func(Op, string)
}

func (s *countingStore) Driver() wrap.Driver { return s.inner.Driver() }

func (s *countingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.onCount(OpLoad, key)
	return s.inner.Load(ctx, key)
}

func (s *countingStore) Store(ctx context.Context, key string, value []byte) (bool, error) {
	s.onCount(OpStore, key)
	return s.inner.Store(ctx, key, value)
}

func (s *countingStore) Forget(ctx context.Context, key string) error {
	s.onCount(OpForget, key)
	return s.inner.Forget(ctx, key)
}

func (s *countingStore) Flush(ctx context.Context) error {
	s.onCount(OpFlush, "")
	return s.inner.Flush(ctx)
}
