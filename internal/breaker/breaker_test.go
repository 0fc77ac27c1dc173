package breaker

import (
	"errors"
	"testing"
	"time"
)

func TestCallPassesThroughWhileClosed(t *testing.T) {
	b := New(3, time.Minute)

	calls := 0
	err := b.Call(func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if b.State() != Closed {
		t.Errorf("expected closed state, got %v", b.State())
	}
}

func TestOpensAfterThreshold(t *testing.T) {
	b := New(3, time.Minute)
	failing := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := b.Call(func() error { return failing }); !errors.Is(err, failing) {
			t.Fatalf("call %d: expected underlying error, got %v", i, err)
		}
	}
	if b.State() != Open {
		t.Fatalf("expected open state after 3 failures, got %v", b.State())
	}

	// Rejected calls must not invoke the operation.
	calls := 0
	err := b.Call(func() error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected 0 calls while open, got %d", calls)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := New(3, time.Minute)
	failing := errors.New("boom")

	b.Call(func() error { return failing })
	b.Call(func() error { return failing })
	if b.Failures() != 2 {
		t.Fatalf("expected 2 failures, got %d", b.Failures())
	}

	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Failures() != 0 {
		t.Errorf("expected failure count reset, got %d", b.Failures())
	}

	// Two more failures should not open the breaker: the count restarted.
	b.Call(func() error { return failing })
	b.Call(func() error { return failing })
	if b.State() != Closed {
		t.Errorf("expected closed state, got %v", b.State())
	}
}

func TestHalfOpenProbe(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := New(1, 30*time.Second, WithClock(clock))
	failing := errors.New("boom")

	b.Call(func() error { return failing })
	if b.State() != Open {
		t.Fatalf("expected open state, got %v", b.State())
	}

	// Before the timeout the breaker still rejects.
	now = now.Add(29 * time.Second)
	if err := b.Call(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen before timeout, got %v", err)
	}

	// After the timeout one probe is admitted.
	now = now.Add(2 * time.Second)
	if b.State() != HalfOpen {
		t.Fatalf("expected half-open state, got %v", b.State())
	}
	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if b.State() != Closed {
		t.Errorf("expected closed after successful probe, got %v", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := New(2, 10*time.Second, WithClock(clock))
	failing := errors.New("boom")

	b.Call(func() error { return failing })
	b.Call(func() error { return failing })
	now = now.Add(11 * time.Second)

	if err := b.Call(func() error { return failing }); !errors.Is(err, failing) {
		t.Fatalf("expected underlying error from probe, got %v", err)
	}
	if b.State() != Open {
		t.Fatalf("expected re-open after failed probe, got %v", b.State())
	}
	if err := b.Call(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen after re-open, got %v", err)
	}
}

func TestHalfOpenAdmitsSingleProbe(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := New(1, 10*time.Second, WithClock(clock))

	b.Call(func() error { return errors.New("boom") })
	now = now.Add(11 * time.Second)

	probeStarted := make(chan struct{})
	finishProbe := make(chan struct{})
	probeDone := make(chan error, 1)
	go func() {
		probeDone <- b.Call(func() error {
			close(probeStarted)
			<-finishProbe
			return nil
		})
	}()
	<-probeStarted

	// While the probe is in flight, a second caller is rejected without
	// invoking its operation.
	calls := 0
	err := b.Call(func() error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen for concurrent probe, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected 0 calls for rejected caller, got %d", calls)
	}

	close(finishProbe)
	if err := <-probeDone; err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if b.State() != Closed {
		t.Errorf("expected closed after successful probe, got %v", b.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half-open"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
