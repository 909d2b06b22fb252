package wrap

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

type calcService struct {
	calls int
	value int
}

func (s *calcService) Total() int {
	s.calls++
	return s.value
}

func (s *calcService) Zero() int {
	s.calls++
	return 0
}

func (s *calcService) Fail() (int, error) {
	s.calls++
	return 0, errBoom
}

func (s *calcService) Describe(prefix string) string {
	s.calls++
	return prefix + ":done"
}

func (s *calcService) FetchCtx(ctx context.Context) (string, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "fetched", nil
}

func (s *calcService) Each(n int, fn func(int)) int {
	s.calls++
	for i := 0; i < n; i++ {
		fn(i)
	}
	return n
}

func (s *calcService) TwoValues() (int, string) {
	return 1, "x"
}

func TestDesignateUnknownMethodFailsFast(t *testing.T) {
	r := NewRegistry()
	err := r.Designate(&calcService{}, "Nope", Memoize())
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Method != "Nope" {
		t.Fatalf("unexpected method in error: %q", nf.Method)
	}
}

func TestDesignateUnsupportedSignature(t *testing.T) {
	r := NewRegistry()
	err := r.Designate(&calcService{}, "TwoValues", Memoize())
	var se *SignatureError
	if !errors.As(err, &se) {
		t.Fatalf("expected SignatureError, got %v", err)
	}
}

func TestDesignateConflictKeepsPriorPolicy(t *testing.T) {
	r := NewRegistry()
	svc := &calcService{value: 7}
	if err := r.Designate(svc, "Total", Memoize()); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	err := r.Designate(svc, "Total", Timed(nil))
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if ce.Existing != KindMemoize || ce.Proposed != KindTimed {
		t.Fatalf("unexpected conflict detail: %+v", ce)
	}

	// Same kind again is a no-op.
	if err := r.Designate(svc, "Total", Memoize()); err != nil {
		t.Fatalf("re-designate same kind failed: %v", err)
	}

	// The prior designation survived and installs as memoize.
	if err := r.Install(svc); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if got := r.Chain(svc, "Total"); len(got) != 1 || got[0] != KindMemoize {
		t.Fatalf("unexpected chain: %v", got)
	}
}

func TestMemoizeReturnsFirstResultForever(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	svc := &calcService{value: 41}
	if err := r.Designate(svc, "Total", Memoize()); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	first, err := r.Call(ctx, svc, "Total")
	if err != nil || first.(int) != 41 {
		t.Fatalf("unexpected first call: %v err=%v", first, err)
	}

	// Later mutations must not leak into the cached value.
	svc.value = 99
	for i := 0; i < 5; i++ {
		got, err := r.Call(ctx, svc, "Total")
		if err != nil || got.(int) != 41 {
			t.Fatalf("call %d: got %v err=%v, want cached 41", i, got, err)
		}
	}
	if svc.calls != 1 {
		t.Fatalf("body executed %d times, want exactly 1", svc.calls)
	}
}

func TestMemoizeCachesFalsyResult(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	svc := &calcService{}
	if err := r.Designate(svc, "Zero", Memoize()); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := r.Call(ctx, svc, "Zero")
		if err != nil || got.(int) != 0 {
			t.Fatalf("call %d: got %v err=%v", i, got, err)
		}
	}
	if svc.calls != 1 {
		t.Fatalf("zero result was not treated as computed; body ran %d times", svc.calls)
	}
}

func TestMemoizePerInstanceIsolation(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	a := &calcService{value: 1}
	b := &calcService{value: 2}
	if err := r.Designate(a, "Total", Memoize()); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	if err := r.Install(a); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	gotA, _ := r.Call(ctx, a, "Total")
	gotB, _ := r.Call(ctx, b, "Total")
	if gotA.(int) != 1 || gotB.(int) != 2 {
		t.Fatalf("instances share a cache: a=%v b=%v", gotA, gotB)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("unexpected execution counts: a=%d b=%d", a.calls, b.calls)
	}
}

func TestMemoizeErrorNeverCached(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	svc := &calcService{}
	if err := r.Designate(svc, "Fail", Memoize()); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := r.Call(ctx, svc, "Fail"); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: expected original error, got %v", i, err)
		}
	}
	if svc.calls != 2 {
		t.Fatalf("failing body should retry every call, ran %d times", svc.calls)
	}

	tbl := r.types[targetTypeMust(t, svc)]
	slot := tbl.slots.acquire(svc, "Fail")
	if slot.Computed() {
		t.Fatalf("failed call populated the cache slot")
	}
}

func TestInstallIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	svc := &calcService{value: 5}
	if err := r.Designate(svc, "Total", Memoize()); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("second install failed: %v", err)
	}
	if got := r.Chain(svc, "Total"); len(got) != 1 {
		t.Fatalf("double install created chain %v", got)
	}

	if _, err := r.Call(ctx, svc, "Total"); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if svc.calls != 1 {
		t.Fatalf("double install ran the body %d times for one call", svc.calls)
	}
}

func TestWrapperChainingComposesAroundEarlierInstall(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	svc := &calcService{value: 9}

	var reports int
	sink := SinkFunc(func(_ context.Context, method string, dur time.Duration, err error) {
		reports++
		if dur < 0 {
			t.Errorf("negative duration reported")
		}
	})

	if err := r.Designate(svc, "Total", Memoize()); err != nil {
		t.Fatalf("designate memoize failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install memoize failed: %v", err)
	}
	if err := r.Designate(svc, "Total", Timed(sink)); err != nil {
		t.Fatalf("designate timed failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install timed failed: %v", err)
	}

	if got := r.Chain(svc, "Total"); len(got) != 2 || got[0] != KindMemoize || got[1] != KindTimed {
		t.Fatalf("unexpected chain order: %v", got)
	}

	for i := 0; i < 3; i++ {
		got, err := r.Call(ctx, svc, "Total")
		if err != nil || got.(int) != 9 {
			t.Fatalf("call %d: got %v err=%v", i, got, err)
		}
	}
	// Timed sits outside memoize: every call reports, the body runs once.
	if reports != 3 {
		t.Fatalf("expected 3 timing reports, got %d", reports)
	}
	if svc.calls != 1 {
		t.Fatalf("memoized body ran %d times", svc.calls)
	}
}

func TestSameKindStacksAfterInstall(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	svc := &calcService{value: 1}

	reports := 0
	sink := SinkFunc(func(context.Context, string, time.Duration, error) { reports++ })

	// Conflict detection only guards pending designations; after Install the
	// same kind starts a fresh layer and the wrappers stack.
	if err := r.Designate(svc, "Total", Timed(sink)); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if err := r.Designate(svc, "Total", Timed(sink)); err != nil {
		t.Fatalf("re-designate after install failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("second install failed: %v", err)
	}

	if got := r.Chain(svc, "Total"); len(got) != 2 || got[0] != KindTimed || got[1] != KindTimed {
		t.Fatalf("unexpected chain: %v", got)
	}
	if _, err := r.Call(ctx, svc, "Total"); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if reports != 2 {
		t.Fatalf("stacked timed layers should report twice per call, got %d", reports)
	}
	if svc.calls != 1 {
		t.Fatalf("body ran %d times for one call", svc.calls)
	}
}

func TestArgsAndCallbackPassThrough(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	svc := &calcService{}
	if err := r.Designate(svc, "Each", Timed(nil)); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	var seen []int
	got, err := r.Call(ctx, svc, "Each", 3, func(i int) { seen = append(seen, i) })
	if err != nil || got.(int) != 3 {
		t.Fatalf("unexpected result: %v err=%v", got, err)
	}
	if len(seen) != 3 || seen[0] != 0 || seen[2] != 2 {
		t.Fatalf("callback did not pass through: %v", seen)
	}
}

func TestCallFallsThroughForUndesignatedMethod(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	svc := &calcService{}

	got, err := r.Call(ctx, svc, "Describe", "pfx")
	if err != nil || got.(string) != "pfx:done" {
		t.Fatalf("unexpected fallthrough result: %v err=%v", got, err)
	}
	if svc.calls != 1 {
		t.Fatalf("fallthrough ran body %d times", svc.calls)
	}
	if r.Installed(svc, "Describe") {
		t.Fatalf("fallthrough must not install a wrapper")
	}
}

func TestContextReachesMethod(t *testing.T) {
	r := NewRegistry()
	svc := &calcService{}
	if err := r.Designate(svc, "FetchCtx", Memoize()); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Call(cancelled, svc, "FetchCtx"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation to reach the body, got %v", err)
	}

	got, err := r.Call(context.Background(), svc, "FetchCtx")
	if err != nil || got.(string) != "fetched" {
		t.Fatalf("unexpected result: %v err=%v", got, err)
	}
}

func TestFuncReturnsBoundCallable(t *testing.T) {
	r := NewRegistry()
	svc := &calcService{value: 3}
	if err := r.Designate(svc, "Total", Memoize()); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	total := r.Func(svc, "Total")
	a, err := total(context.Background())
	if err != nil || a.(int) != 3 {
		t.Fatalf("unexpected bound call result: %v err=%v", a, err)
	}
	b, _ := total(context.Background())
	if b.(int) != 3 || svc.calls != 1 {
		t.Fatalf("bound callable bypassed the cache: %v calls=%d", b, svc.calls)
	}
}

func TestRegistryHoldsNoInstanceState(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	svc := &calcService{value: 8}
	if err := r.Designate(svc, "Total", Memoize()); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	tbl := r.types[targetTypeMust(t, svc)]
	if tbl.slots.len() != 0 {
		t.Fatalf("slots allocated before any call: %d", tbl.slots.len())
	}

	if _, err := r.Call(ctx, svc, "Total"); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if tbl.slots.len() != 1 {
		t.Fatalf("expected exactly one slot, got %d", tbl.slots.len())
	}

	// Wrapper entries themselves stay stateless.
	e := tbl.entries["Total"]
	if e.pending != nil {
		t.Fatalf("installed entry kept a pending policy")
	}
}

func TestConcurrentFirstCallsExecuteBodyOnce(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	svc := &calcService{value: 6}
	if err := r.Designate(svc, "Total", Memoize()); err != nil {
		t.Fatalf("designate failed: %v", err)
	}
	if err := r.Install(svc); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Call(ctx, svc, "Total")
			if err != nil || got.(int) != 6 {
				t.Errorf("unexpected concurrent result: %v err=%v", got, err)
			}
		}()
	}
	wg.Wait()
	if svc.calls != 1 {
		t.Fatalf("body executed %d times under concurrent first calls", svc.calls)
	}
}

func targetTypeMust(t *testing.T, target any) reflect.Type {
	t.Helper()
	tt, err := targetType(target)
	if err != nil {
		t.Fatalf("target type: %v", err)
	}
	return tt
}
