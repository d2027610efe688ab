// Package workflow sequences the compaction steps as a finite state
// machine: locate the VHD, log the user out, verify the session is
// gone, compact the disk, optionally relaunch. The orchestrator is the
// only place that decides whether to proceed, abort, or finish early.
package workflow

import (
	"context"

	"github.com/superfly/fsm"
	"github.com/wsltools/wslcompact/pkg/compactor"
	"github.com/wsltools/wslcompact/pkg/errors"
	"github.com/wsltools/wslcompact/pkg/eventlog"
	"github.com/wsltools/wslcompact/pkg/session"
	"github.com/wsltools/wslcompact/pkg/vhd"
	"github.com/wsltools/wslcompact/pkg/wsl"
)

// Machine holds the dependencies of one workflow run's transitions.
// The run context carries the caller's cancellation signal; it is
// checked between steps, never preemptively inside one.
type Machine struct {
	locator    *vhd.Locator
	terminator *session.Terminator
	verifier   *session.Verifier
	compactor  *compactor.Compactor
	host       wsl.Host
	log        *eventlog.Recorder

	runCtx             context.Context
	verifyTimeoutFatal bool
}

// NewMachine creates a workflow machine scoped to one run.
func NewMachine(
	locator *vhd.Locator,
	terminator *session.Terminator,
	verifier *session.Verifier,
	comp *compactor.Compactor,
	host wsl.Host,
	log *eventlog.Recorder,
	runCtx context.Context,
	verifyTimeoutFatal bool,
) *Machine {
	return &Machine{
		locator:            locator,
		terminator:         terminator,
		verifier:           verifier,
		compactor:          comp,
		host:               host,
		log:                log,
		runCtx:             runCtx,
		verifyTimeoutFatal: verifyTimeoutFatal,
	}
}

// Register registers the compaction workflow FSM. Transitions are
// strictly linear with no backward edges; every fatal condition aborts
// into the failed end state.
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[Request, Response], fsm.Resume, error) {
	start, resume, err := fsm.Register[Request, Response](manager, "vhd-compact").
		Start(StateLocate, m.handleLocate).
		To(StateLogout, m.handleLogout).
		To(StateVerify, m.handleVerify).
		To(StateCompact, m.handleCompact).
		To(StateRelaunch, m.handleRelaunch).
		To(StateComplete, m.handleComplete).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register FSM")
	}

	return start, resume, nil
}
