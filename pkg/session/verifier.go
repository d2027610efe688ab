package session

import (
	"context"
	"log/slog"
	"time"
)

// Probe observes whether a user session is present. Satisfied by
// wsl.Host; faked in tests.
type Probe interface {
	UserActive(ctx context.Context, distro, user string) (bool, error)
}

// SleepFunc suspends between polls. The default waits on a timer or
// context cancellation; tests inject one that returns immediately.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepWall(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Verifier polls for session absence with a bounded retry loop. Logout
// is asynchronous at the host level, so polling with a bound is the only
// model that cannot hang an unattended run.
type Verifier struct {
	probe    Probe
	attempts int
	interval time.Duration
	sleep    SleepFunc
}

// NewVerifier creates a verifier polling up to attempts times with
// interval between probes.
func NewVerifier(probe Probe, attempts int, interval time.Duration) *Verifier {
	if attempts < 1 {
		attempts = 1
	}
	return &Verifier{probe: probe, attempts: attempts, interval: interval, sleep: sleepWall}
}

// WithSleep overrides the inter-poll suspension, for tests.
func (v *Verifier) WithSleep(sleep SleepFunc) *Verifier {
	v.sleep = sleep
	return v
}

// AwaitLoggedOut polls until the session is observed absent or attempts
// are exhausted. Timeout is a returned state, never an error: the
// orchestrator decides whether it is fatal. The only error returned is
// context cancellation. Probe failures count as an attempt and are
// logged; the host probe is best effort.
func (v *Verifier) AwaitLoggedOut(ctx context.Context, distro, user string) (State, error) {
	state := StateTerminationRequested

	for attempt := 1; attempt <= v.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		active, err := v.probe.UserActive(ctx, distro, user)
		switch {
		case err != nil:
			slog.Warn("session_verify_probe_failed", "distro", distro, "user", user, "attempt", attempt, "error", err)
		case !active:
			slog.Info("session_verify_confirmed", "distro", distro, "user", user, "attempt", attempt)
			return StateConfirmedLoggedOut, nil
		default:
			slog.Info("session_verify_still_active", "distro", distro, "user", user, "attempt", attempt, "max_attempts", v.attempts)
		}

		if attempt < v.attempts {
			if err := v.sleep(ctx, v.interval); err != nil {
				return state, err
			}
		}
	}

	slog.Warn("session_verify_timed_out", "distro", distro, "user", user, "attempts", v.attempts)
	return StateVerificationTimedOut, nil
}
