// Package compactor drives the host disk-compaction tool (DiskPart)
// against a resolved VHD file.
package compactor

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/wsltools/wslcompact/pkg/errors"
	"github.com/wsltools/wslcompact/pkg/eventlog"
	"github.com/wsltools/wslcompact/pkg/vhd"
)

// Outcome classifies one compaction attempt. Produced once per run.
type Outcome string

const (
	OutcomeSimulated Outcome = "simulated"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped means live compaction was requested on a host
	// without the tool.
	OutcomeSkipped Outcome = "skipped_not_applicable"
)

// ToolError carries the compaction tool's raw diagnostic output so a
// failed run can be analyzed from the log alone.
type ToolError struct {
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("disk compaction tool failed: %v", e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Compactor generates and executes DiskPart script runs. It never
// retries: tool failure is authoritative and terminal for the run.
type Compactor struct {
	runner Runner
}

// New creates a compactor over the given script runner.
func New(runner Runner) *Compactor {
	return &Compactor{runner: runner}
}

// Compact shrinks the referenced VHD. In dry-run mode it logs the exact
// script it would execute and returns OutcomeSimulated without touching
// the file. Repeating compaction on an already-minimal disk is a no-op
// success: DiskPart reports nothing to shrink with a zero exit status.
func (c *Compactor) Compact(ctx context.Context, ref *vhd.Reference, dryRun bool, log *eventlog.Recorder) (Outcome, error) {
	script := Script(ref.Path)

	if dryRun {
		log.Infof("[DRY-RUN] Would run DiskPart compact on %s", ref.Path)
		log.Infof("[DRY-RUN] DiskPart script would be:\n%s", script)
		log.Infof("[DRY-RUN] DiskPart compact simulation completed")
		slog.Info("compaction_simulated", "vhd_path", ref.Path)
		return OutcomeSimulated, nil
	}

	if _, err := os.Stat(ref.Path); err != nil {
		log.Errorf("VHD file not found: %s", ref.Path)
		return OutcomeFailed, errors.Wrap(err, "vhd file not accessible")
	}

	scriptPath, err := writeScript(script)
	if err != nil {
		return OutcomeFailed, errors.Wrap(err, "failed to write diskpart script")
	}
	defer os.Remove(scriptPath)

	slog.Info("compaction_started", "vhd_path", ref.Path, "script_path", scriptPath)

	output, err := c.runner.Run(ctx, scriptPath)
	if err != nil {
		if IsToolMissing(err) {
			log.Errorf("DiskPart is not available on this host: %v", err)
			slog.Error("compaction_tool_missing", "error", err)
			return OutcomeSkipped, &ToolError{Output: output, Err: err}
		}
		// Keep the raw diagnostics in the event log for post-mortem.
		log.Errorf("DiskPart failed: %v", err)
		if output != "" {
			log.Errorf("DiskPart output:\n%s", output)
		}
		slog.Error("compaction_failed", "vhd_path", ref.Path, "error", err)
		return OutcomeFailed, &ToolError{Output: output, Err: err}
	}

	if output != "" {
		log.Infof("%s", output)
	} else {
		log.Infof("DiskPart finished.")
	}
	slog.Info("compaction_complete", "vhd_path", ref.Path)

	return OutcomeSucceeded, nil
}

// writeScript stores the script in a temp file for diskpart /s.
func writeScript(script string) (string, error) {
	f, err := os.CreateTemp("", "wslcompact-*.txt")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(script); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
