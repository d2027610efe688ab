package workflow

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/superfly/fsm"
	"github.com/wsltools/wslcompact/pkg/compactor"
	"github.com/wsltools/wslcompact/pkg/errors"
	"github.com/wsltools/wslcompact/pkg/eventlog"
	"github.com/wsltools/wslcompact/pkg/security"
	"github.com/wsltools/wslcompact/pkg/session"
	"github.com/wsltools/wslcompact/pkg/vhd"
	"github.com/wsltools/wslcompact/pkg/wsl"
)

// Options tunes one orchestrator instance.
type Options struct {
	// FSMDBPath is the directory the durable state machine keeps its
	// database in.
	FSMDBPath string

	VerifyAttempts     int
	VerifyInterval     time.Duration
	VerifyTimeoutFatal bool

	// Sinks receive each log event as it happens, in addition to the
	// ordered capture on the Result.
	Sinks []eventlog.Sink

	// Sleep overrides the verifier's inter-poll suspension, for tests.
	Sleep session.SleepFunc
}

// Orchestrator is the workflow entry point shared by the CLI and any
// other front end. One run executes at a time per invocation; callers
// must not run two workflows against the same VHD concurrently.
type Orchestrator struct {
	locator   *vhd.Locator
	host      wsl.Host
	compactor *compactor.Compactor
	validator *security.Validator
	opts      Options
}

// NewOrchestrator wires the workflow collaborators together.
func NewOrchestrator(
	locator *vhd.Locator,
	host wsl.Host,
	comp *compactor.Compactor,
	validator *security.Validator,
	opts Options,
) *Orchestrator {
	if opts.VerifyAttempts < 1 {
		opts.VerifyAttempts = 1
	}
	return &Orchestrator{
		locator:   locator,
		host:      host,
		compactor: comp,
		validator: validator,
		opts:      opts,
	}
}

// Run executes one compaction workflow. The context carries the
// cancellation signal; cancellation yields a StatusCancelled result,
// never an error. The returned error covers only infrastructure
// problems setting up the state machine.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := eventlog.NewRecorder(o.opts.Sinks...)

	slog.Info("workflow_run_start", "run_id", runID, "distro", req.Distro, "user", req.User, "dry_run", req.DryRun)

	// Cancellation requested before any step starts: terminal with an
	// empty log and nothing attempted.
	if ctx.Err() != nil {
		return &Result{RunID: runID, Status: StatusCancelled, ErrorMessage: "cancelled", Events: log.Events()}, nil
	}

	if err := o.validate(req); err != nil {
		log.Errorf("Invalid request: %v", err)
		return &Result{
			RunID:        runID,
			Status:       StatusFailure,
			ErrorMessage: err.Error(),
			Events:       log.Events(),
		}, nil
	}

	if req.DryRun {
		log.Infof("[DRY-RUN MODE] No actual changes will be made")
	}
	log.Infof("Target distro: %s", req.Distro)
	log.Infof("Target user: %s", req.User)

	if err := os.MkdirAll(o.opts.FSMDBPath, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create FSM directory")
	}

	manager, err := fsm.New(fsm.Config{DBPath: o.opts.FSMDBPath})
	if err != nil {
		return nil, errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	verifier := session.NewVerifier(o.host, o.opts.VerifyAttempts, o.opts.VerifyInterval)
	if o.opts.Sleep != nil {
		verifier.WithSleep(o.opts.Sleep)
	}

	machine := NewMachine(
		o.locator,
		session.NewTerminator(o.host),
		verifier,
		o.compactor,
		o.host,
		log,
		ctx,
		o.opts.VerifyTimeoutFatal,
	)

	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return nil, errors.Wrap(err, "FSM register failed")
	}

	resp := &Response{}
	version, err := start(ctx, runID, fsm.NewRequest(&req, resp))
	if err != nil {
		return nil, errors.Wrap(err, "FSM start failed")
	}

	waitErr := manager.Wait(ctx, version)
	if waitErr != nil {
		slog.Warn("workflow_fsm_wait", "run_id", runID, "error", waitErr)
	}

	result := o.assemble(ctx, runID, resp, log, waitErr)
	slog.Info("workflow_run_done", "run_id", runID, "status", result.Status, "outcome", result.Outcome)
	return result, nil
}

// assemble builds the immutable Result. Classification relies on the
// status the handlers recorded on the shared response, not on error
// identity surviving the FSM boundary.
func (o *Orchestrator) assemble(ctx context.Context, runID string, resp *Response, log *eventlog.Recorder, waitErr error) *Result {
	status := Status(resp.Status)
	errorMessage := resp.ErrorMessage

	if status == "" {
		switch {
		case ctx.Err() != nil:
			status = StatusCancelled
			errorMessage = "cancelled"
		case waitErr != nil:
			status = StatusFailure
			errorMessage = waitErr.Error()
		default:
			status = StatusSuccess
		}
	}

	result := &Result{
		RunID:             runID,
		SessionState:      session.State(resp.SessionState),
		Outcome:           compactor.Outcome(resp.Outcome),
		RelaunchAttempted: resp.RelaunchAttempted,
		RelaunchSucceeded: resp.RelaunchSucceeded,
		Status:            status,
		ErrorMessage:      errorMessage,
		Events:            log.Events(),
	}
	if resp.SessionState == "" {
		result.SessionState = session.StateUnknown
	}
	if resp.VHDPath != "" {
		result.VHD = &vhd.Reference{Path: resp.VHDPath, Provenance: vhd.Provenance(resp.Provenance)}
	}
	return result
}

func (o *Orchestrator) validate(req Request) error {
	if err := o.validator.ValidateDistroName(req.Distro); err != nil {
		return err
	}
	if err := o.validator.ValidateUserName(req.User); err != nil {
		return err
	}
	return o.validator.ValidateVHDPath(req.VHDPath)
}
