package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/superfly/fsm"
	"github.com/wsltools/wslcompact/pkg/compactor"
	"github.com/wsltools/wslcompact/pkg/session"
	"github.com/wsltools/wslcompact/pkg/vhd"
)

// ErrVerifyTimeout marks a verification timeout escalated to a failure
// by the verify-timeout-fatal policy.
var ErrVerifyTimeout = errors.New("logout verification timed out")

// requestFrom copies the FSM input into a plain Request for the step
// methods.
func requestFrom(freq *fsm.Request[Request, Response]) Request {
	return Request{
		Distro:   freq.Msg.Distro,
		User:     freq.Msg.User,
		VHDPath:  freq.Msg.VHDPath,
		Relaunch: freq.Msg.Relaunch,
		DryRun:   freq.Msg.DryRun,
	}
}

// handler wraps a step method in the FSM handler shape: cancellation
// check first, then the step, with any error aborting the machine.
func (m *Machine) handler(state string, step func(Request, *Response) error) func(context.Context, *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
	return func(ctx context.Context, freq *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
		resp := freq.W.Msg
		if resp == nil {
			resp = &Response{}
		}

		slog.Info("workflow_state", "state", state)

		if err := m.checkCancelled(resp); err != nil {
			return nil, fsm.Abort(err)
		}
		if err := step(requestFrom(freq), resp); err != nil {
			return nil, fsm.Abort(err)
		}
		return fsm.NewResponse(resp), nil
	}
}

func (m *Machine) handleLocate(ctx context.Context, freq *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
	return m.handler(StateLocate, m.stepLocate)(ctx, freq)
}

func (m *Machine) handleLogout(ctx context.Context, freq *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
	return m.handler(StateLogout, m.stepLogout)(ctx, freq)
}

func (m *Machine) handleVerify(ctx context.Context, freq *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
	return m.handler(StateVerify, m.stepVerify)(ctx, freq)
}

func (m *Machine) handleCompact(ctx context.Context, freq *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
	return m.handler(StateCompact, m.stepCompact)(ctx, freq)
}

func (m *Machine) handleRelaunch(ctx context.Context, freq *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
	return m.handler(StateRelaunch, m.stepRelaunch)(ctx, freq)
}

func (m *Machine) handleComplete(ctx context.Context, freq *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
	return m.handler(StateComplete, m.stepComplete)(ctx, freq)
}

// checkCancelled implements cooperative cancellation: the signal is
// observed between steps, the run transitions to cancelled, and every
// remaining step is skipped.
func (m *Machine) checkCancelled(resp *Response) error {
	if err := m.runCtx.Err(); err != nil {
		m.log.Warnf("Operation cancelled by user")
		resp.Status = string(StatusCancelled)
		resp.ErrorMessage = "cancelled"
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return nil
}

// fail records a fatal condition on the response and in the event log.
// This is the single error-translation boundary: component errors never
// escape the workflow unclassified.
func (m *Machine) fail(resp *Response, err error, msg string) error {
	m.log.Errorf("%s: %v", msg, err)
	resp.Status = string(StatusFailure)
	resp.ErrorMessage = fmt.Sprintf("%s: %v", msg, err)
	return err
}

func (m *Machine) stepLocate(in Request, resp *Response) error {
	ref, err := m.locator.Resolve(in.Distro, in.VHDPath)
	if err != nil {
		return m.fail(resp, err, "VHD resolution failed")
	}

	resp.VHDPath = ref.Path
	resp.Provenance = string(ref.Provenance)
	m.log.Infof("VHDX: %s (%s)", ref.Path, ref.Provenance)

	// Live runs need the file now; a dry run must not touch it at all.
	if !in.DryRun {
		if _, err := os.Stat(ref.Path); err != nil {
			return m.fail(resp, fmt.Errorf("%s: %w", ref.Path, vhd.ErrNotFound), "VHD file not found")
		}
	}
	return nil
}

func (m *Machine) stepLogout(in Request, resp *Response) error {
	m.log.Infof("Checking for active user processes...")

	if in.DryRun {
		m.log.Infof("[DRY-RUN] Would kill all processes for user %s in distro %s", in.User, in.Distro)
		resp.SessionState = string(session.StateTerminationRequested)
		return nil
	}

	active, err := m.host.UserActive(m.runCtx, in.Distro, in.User)
	switch {
	case err != nil:
		m.log.Warnf("Warning: activity check failed (%v); continuing.", err)
	case active:
		resp.SessionState = string(session.StateLoggedIn)
		m.log.Infof("User appears active; logging out (killing all processes)...")
	default:
		m.log.Infof("No active processes detected for user; proceeding to shutdown.")
	}

	if err := m.terminator.Terminate(m.runCtx, in.Distro, in.User); err != nil {
		return m.fail(resp, err, "Logout request failed")
	}

	resp.SessionState = string(session.StateTerminationRequested)
	return nil
}

func (m *Machine) stepVerify(in Request, resp *Response) error {
	if in.DryRun {
		m.log.Infof("[DRY-RUN] Would verify logout of user %s in distro %s", in.User, in.Distro)
		resp.SessionState = string(session.StateConfirmedLoggedOut)
		return nil
	}

	state, err := m.verifier.AwaitLoggedOut(m.runCtx, in.Distro, in.User)
	resp.SessionState = string(state)
	if err != nil {
		return m.checkCancelled(resp)
	}

	switch state {
	case session.StateConfirmedLoggedOut:
		m.log.Infof("Logout verification: OK")
	case session.StateVerificationTimedOut:
		m.log.Warnf("Logout verification: FAILED (still active)")
		if m.verifyTimeoutFatal {
			return m.fail(resp, ErrVerifyTimeout, "Logout verification timed out")
		}
		// Policy decision: a stale session is usually torn down by the
		// WSL shutdown that precedes compaction, so the default is to
		// proceed with a warning rather than abort.
		m.log.Warnf("Proceeding despite verification timeout")
	}
	return nil
}

func (m *Machine) stepCompact(in Request, resp *Response) error {
	if in.DryRun {
		m.log.Infof("[DRY-RUN] Would terminate WSL distro %s and shutdown WSL", in.Distro)
	} else {
		m.log.Infof("Stopping WSL...")
		if err := m.terminator.StopDistro(m.runCtx, in.Distro); err != nil {
			m.log.Warnf("Warning: WSL shutdown reported an error (%v); continuing.", err)
		}
	}

	m.log.Infof("Compacting VHD (DiskPart)...")

	ref := &vhd.Reference{Path: resp.VHDPath, Provenance: vhd.Provenance(resp.Provenance)}
	outcome, err := m.compactor.Compact(m.runCtx, ref, in.DryRun, m.log)
	resp.Outcome = string(outcome)
	if err != nil {
		return m.fail(resp, err, "Compaction failed")
	}
	return nil
}

func (m *Machine) stepRelaunch(in Request, resp *Response) error {
	if !in.Relaunch {
		m.log.Infof("Relaunch disabled; leaving distro stopped.")
		return nil
	}

	outcome := compactor.Outcome(resp.Outcome)
	if outcome != compactor.OutcomeSucceeded && outcome != compactor.OutcomeSimulated {
		return nil
	}

	resp.RelaunchAttempted = true
	m.log.Infof("Relaunching distro...")

	if in.DryRun {
		m.log.Infof("[DRY-RUN] Would relaunch WSL distro %s for user %s", in.Distro, in.User)
		resp.RelaunchSucceeded = true
		return nil
	}

	// The valuable part of the run is already done; a relaunch failure
	// is a warning, never a workflow failure.
	if err := m.host.Launch(m.runCtx, in.Distro, in.User); err != nil {
		m.log.Warnf("Warning: relaunch failed (%v)", err)
		return nil
	}

	resp.RelaunchSucceeded = true
	m.log.Infof("Relaunch requested.")
	return nil
}

func (m *Machine) stepComplete(in Request, resp *Response) error {
	resp.Status = string(StatusSuccess)
	m.log.Infof("Compaction completed successfully.")
	return nil
}
