package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedProbe returns the scripted activity observations in order,
// repeating the last one when exhausted.
type scriptedProbe struct {
	observations []bool
	errs         []error
	calls        int
}

func (p *scriptedProbe) UserActive(ctx context.Context, distro, user string) (bool, error) {
	i := p.calls
	p.calls++
	if i >= len(p.observations) {
		i = len(p.observations) - 1
	}
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	return p.observations[i], err
}

func noSleep(recorded *int) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*recorded++
		return nil
	}
}

func TestAwaitLoggedOut_ConfirmedOnFirstAbsence(t *testing.T) {
	probe := &scriptedProbe{observations: []bool{true, true, false}}
	sleeps := 0
	v := NewVerifier(probe, 5, time.Second).WithSleep(noSleep(&sleeps))

	state, err := v.AwaitLoggedOut(context.Background(), "Ubuntu", "ubuntu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateConfirmedLoggedOut {
		t.Errorf("expected %s, got %s", StateConfirmedLoggedOut, state)
	}
	if probe.calls != 3 {
		t.Errorf("expected 3 probes, got %d", probe.calls)
	}
	if sleeps != 2 {
		t.Errorf("expected 2 sleeps, got %d", sleeps)
	}
}

func TestAwaitLoggedOut_TimesOutAfterMaxAttempts(t *testing.T) {
	probe := &scriptedProbe{observations: []bool{true}}
	sleeps := 0
	v := NewVerifier(probe, 4, time.Second).WithSleep(noSleep(&sleeps))

	state, err := v.AwaitLoggedOut(context.Background(), "Ubuntu", "ubuntu")
	if err != nil {
		t.Fatalf("timeout must be a state, not an error, got: %v", err)
	}
	if state != StateVerificationTimedOut {
		t.Errorf("expected %s, got %s", StateVerificationTimedOut, state)
	}
	if probe.calls != 4 {
		t.Errorf("expected 4 probes, got %d", probe.calls)
	}
}

func TestAwaitLoggedOut_AbsentOnLastAttempt(t *testing.T) {
	probe := &scriptedProbe{observations: []bool{true, true, false}}
	sleeps := 0
	v := NewVerifier(probe, 3, time.Second).WithSleep(noSleep(&sleeps))

	state, err := v.AwaitLoggedOut(context.Background(), "Ubuntu", "ubuntu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateConfirmedLoggedOut {
		t.Errorf("expected %s, got %s", StateConfirmedLoggedOut, state)
	}
}

func TestAwaitLoggedOut_ProbeErrorCountsAsAttempt(t *testing.T) {
	probe := &scriptedProbe{
		observations: []bool{false, false},
		errs:         []error{errors.New("wsl unavailable"), nil},
	}
	sleeps := 0
	v := NewVerifier(probe, 3, time.Second).WithSleep(noSleep(&sleeps))

	state, err := v.AwaitLoggedOut(context.Background(), "Ubuntu", "ubuntu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateConfirmedLoggedOut {
		t.Errorf("expected confirmation on second probe, got %s", state)
	}
	if probe.calls != 2 {
		t.Errorf("expected 2 probes, got %d", probe.calls)
	}
}

func TestAwaitLoggedOut_CancelledContext(t *testing.T) {
	probe := &scriptedProbe{observations: []bool{true}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewVerifier(probe, 3, time.Second).WithSleep(func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	})

	_, err := v.AwaitLoggedOut(ctx, "Ubuntu", "ubuntu")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if probe.calls != 0 {
		t.Errorf("expected no probes after cancellation, got %d", probe.calls)
	}
}
