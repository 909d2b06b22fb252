package wrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoizeFuncComputesOnce(t *testing.T) {
	ctx := context.Background()
	calls := 0
	load := MemoizeFunc(func(context.Context) (int, error) {
		calls++
		return 42, nil
	})

	for i := 0; i < 4; i++ {
		got, err := load(ctx)
		if err != nil || got != 42 {
			t.Fatalf("call %d: got %d err=%v", i, got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("fn ran %d times", calls)
	}
}

func TestMemoizeFuncRetriesAfterError(t *testing.T) {
	ctx := context.Background()
	calls := 0
	load := MemoizeFunc(func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errBoom
		}
		return "ok", nil
	})

	if _, err := load(ctx); !errors.Is(err, errBoom) {
		t.Fatalf("expected first-call error, got %v", err)
	}
	got, err := load(ctx)
	if err != nil || got != "ok" {
		t.Fatalf("retry failed: %q err=%v", got, err)
	}
	if _, _ = load(ctx); calls != 2 {
		t.Fatalf("fn ran %d times, want 2", calls)
	}
}

func TestMemoizeFuncConcurrent(t *testing.T) {
	ctx := context.Background()
	calls := 0
	load := MemoizeFunc(func(context.Context) (int, error) {
		calls++
		return 7, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got, err := load(ctx); err != nil || got != 7 {
				t.Errorf("got %d err=%v", got, err)
			}
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Fatalf("fn ran %d times under concurrency", calls)
	}
}

func TestTimedFuncReportsEveryCall(t *testing.T) {
	ctx := context.Background()
	var names []string
	var durs []time.Duration
	sink := SinkFunc(func(_ context.Context, name string, dur time.Duration, err error) {
		names = append(names, name)
		durs = append(durs, dur)
	})

	load := TimedFunc("load", sink, func(context.Context) (string, error) {
		time.Sleep(time.Millisecond)
		return "ok", nil
	})

	for i := 0; i < 2; i++ {
		got, err := load(ctx)
		if err != nil || got != "ok" {
			t.Fatalf("call %d: %q err=%v", i, got, err)
		}
	}
	if len(names) != 2 || names[0] != "load" {
		t.Fatalf("unexpected reports: %v", names)
	}
	for i, d := range durs {
		if d < time.Millisecond {
			t.Fatalf("report %d: duration %v too small", i, d)
		}
	}
}

func TestTimedFuncPassesErrorThrough(t *testing.T) {
	var reportedErr error
	sink := SinkFunc(func(_ context.Context, _ string, _ time.Duration, err error) {
		reportedErr = err
	})

	load := TimedFunc("fail", sink, func(context.Context) (int, error) {
		return 0, errBoom
	})
	if _, err := load(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if !errors.Is(reportedErr, errBoom) {
		t.Fatalf("sink saw %v", reportedErr)
	}
}

func TestTimedFuncNilSink(t *testing.T) {
	load := TimedFunc("quiet", nil, func(context.Context) (int, error) {
		return 1, nil
	})
	got, err := load(context.Background())
	if err != nil || got != 1 {
		t.Fatalf("got %d err=%v", got, err)
	}
}
