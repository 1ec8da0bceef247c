package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nailbook/pkg/logger"
)

type fakeExpirer struct {
	mu      sync.Mutex
	cutoffs []time.Time
	n       int
	err     error
}

func (f *fakeExpirer) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep must run with a deadline")
	}
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.n, f.err
}

func (f *fakeExpirer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
}

func TestRunOnce_UsesTTLCutoff(t *testing.T) {
	exp := &fakeExpirer{n: 3}
	s := New(exp, "@every 1m", 30*time.Minute, time.Second, time.UTC, testLogger())
	fixed := time.Date(2031, 5, 12, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	n, err := s.RunOnce(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("RunOnce = %d, %v", n, err)
	}
	if want := fixed.Add(-30 * time.Minute); !exp.cutoffs[0].Equal(want) {
		t.Errorf("cutoff = %s, want %s", exp.cutoffs[0], want)
	}
}

func TestRunOnce_ReturnsError(t *testing.T) {
	exp := &fakeExpirer{err: errors.New("store down")}
	s := New(exp, "@every 1m", time.Minute, time.Second, time.UTC, testLogger())
	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun_SchedulesUntilCancelled(t *testing.T) {
	exp := &fakeExpirer{}
	s := New(exp, "@every 1s", time.Minute, time.Second, time.UTC, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for exp.calls() == 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_RejectsBadSchedule(t *testing.T) {
	s := New(&fakeExpirer{}, "every now and then", time.Minute, time.Second, time.UTC, testLogger())
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected schedule error")
	}
}
