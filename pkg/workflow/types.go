package workflow

import (
	"errors"

	"github.com/wsltools/wslcompact/pkg/compactor"
	"github.com/wsltools/wslcompact/pkg/eventlog"
	"github.com/wsltools/wslcompact/pkg/session"
	"github.com/wsltools/wslcompact/pkg/vhd"
)

// Request is the immutable workflow input: exactly one
// (distro, user, vhd-path) tuple per invocation.
type Request struct {
	Distro string
	User   string
	// VHDPath overrides auto-detection when non-empty.
	VHDPath  string
	Relaunch bool
	DryRun   bool
	// RunID lets the caller correlate the run with its own records,
	// e.g. the run history. Generated when empty.
	RunID string
}

// Response is the FSM output, accumulated across transitions. Fields
// are plain strings so the durable machine can carry them between
// states; Result converts them back to their domain types.
type Response struct {
	// From locate
	VHDPath    string
	Provenance string

	// From logout/verify
	SessionState string

	// From compact
	Outcome string

	// From relaunch
	RelaunchAttempted bool
	RelaunchSucceeded bool

	// From complete/failed/cancelled
	Status       string
	ErrorMessage string
}

// Status is the terminal classification of one workflow run.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusCancelled Status = "cancelled"
)

// ErrCancelled marks a run stopped by its cancellation signal. It maps
// to StatusCancelled, never to StatusFailure.
var ErrCancelled = errors.New("workflow cancelled")

// State names
const (
	StateLocate   = "locate"
	StateLogout   = "logout"
	StateVerify   = "verify"
	StateCompact  = "compact"
	StateRelaunch = "relaunch"
	StateComplete = "complete"
	StateFailed   = "failed"
)

// Result aggregates everything a caller (CLI exit-code mapping, GUI
// display, run history) needs from one run. Never mutated after return.
type Result struct {
	RunID             string
	VHD               *vhd.Reference
	SessionState      session.State
	Outcome           compactor.Outcome
	RelaunchAttempted bool
	RelaunchSucceeded bool
	Status            Status
	ErrorMessage      string
	Events            []eventlog.Event
}

// ExitCode maps the run status to the process exit code contract:
// 0 success, 1 failure, 130 cancelled.
func (r *Result) ExitCode() int {
	switch r.Status {
	case StatusSuccess:
		return 0
	case StatusCancelled:
		return 130
	default:
		return 1
	}
}
