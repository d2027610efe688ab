package compactor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wsltools/wslcompact/pkg/eventlog"
	"github.com/wsltools/wslcompact/pkg/vhd"
)

// fakeRunner returns scripted output without executing anything.
type fakeRunner struct {
	output  string
	err     error
	scripts []string
}

func (r *fakeRunner) Run(ctx context.Context, scriptPath string) (string, error) {
	content, readErr := os.ReadFile(scriptPath)
	if readErr != nil {
		return "", readErr
	}
	r.scripts = append(r.scripts, string(content))
	return r.output, r.err
}

func TestScript_Content(t *testing.T) {
	script := Script(`C:\wsl\ext4.vhdx`)

	for _, want := range []string{
		`select vdisk file="C:\wsl\ext4.vhdx"`,
		"attach vdisk readonly",
		"compact vdisk",
		"detach vdisk",
		"exit",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing line %q:\n%s", want, script)
		}
	}

	if script != Script(`C:\wsl\ext4.vhdx`) {
		t.Error("script generation must be deterministic")
	}
}

func TestCompact_DryRunNeverTouchesFile(t *testing.T) {
	// The referenced path does not exist; dry-run must not care.
	ref := &vhd.Reference{
		Path:       filepath.Join(t.TempDir(), "missing.vhdx"),
		Provenance: vhd.ProvenanceAutoDetected,
	}
	runner := &fakeRunner{}
	log := eventlog.NewRecorder()

	outcome, err := New(runner).Compact(context.Background(), ref, true, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSimulated {
		t.Errorf("expected %s, got %s", OutcomeSimulated, outcome)
	}
	if len(runner.scripts) != 0 {
		t.Error("dry-run must not invoke the runner")
	}
	if !log.ContainsFold("DiskPart compact simulation completed") {
		t.Error("dry-run log missing completion phrase")
	}
	if !log.ContainsFold(`select vdisk file="` + ref.Path + `"`) {
		t.Error("dry-run log must contain the script verbatim")
	}
}

func TestCompact_SuccessClassification(t *testing.T) {
	ref := writableRef(t)
	runner := &fakeRunner{output: "DiskPart successfully compacted the virtual disk file."}
	log := eventlog.NewRecorder()

	outcome, err := New(runner).Compact(context.Background(), ref, false, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSucceeded {
		t.Errorf("expected %s, got %s", OutcomeSucceeded, outcome)
	}
	if len(runner.scripts) != 1 || !strings.Contains(runner.scripts[0], ref.Path) {
		t.Errorf("runner did not receive the script for %s", ref.Path)
	}
}

func TestCompact_AlreadyMinimalDiskIsSuccess(t *testing.T) {
	// DiskPart reports a no-op compaction with a zero exit status; the
	// workflow treats it as idempotent success.
	ref := writableRef(t)
	runner := &fakeRunner{output: "There is nothing to compact."}
	log := eventlog.NewRecorder()

	outcome, err := New(runner).Compact(context.Background(), ref, false, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSucceeded {
		t.Errorf("expected %s, got %s", OutcomeSucceeded, outcome)
	}
}

func TestCompact_FailureRetainsDiagnostics(t *testing.T) {
	ref := writableRef(t)
	runner := &fakeRunner{
		output: "DiskPart has encountered an error: The process cannot access the file.",
		err:    errors.New("exit status 1"),
	}
	log := eventlog.NewRecorder()

	outcome, err := New(runner).Compact(context.Background(), ref, false, log)
	if outcome != OutcomeFailed {
		t.Errorf("expected %s, got %s", OutcomeFailed, outcome)
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if !strings.Contains(toolErr.Output, "cannot access the file") {
		t.Error("ToolError must retain raw tool output")
	}
	if !log.ContainsFold("cannot access the file") {
		t.Error("event log must retain raw tool output")
	}
}

func TestCompact_MissingToolIsSkipped(t *testing.T) {
	ref := writableRef(t)
	runner := &fakeRunner{err: exec.ErrNotFound}
	log := eventlog.NewRecorder()

	outcome, err := New(runner).Compact(context.Background(), ref, false, log)
	if outcome != OutcomeSkipped {
		t.Errorf("expected %s, got %s", OutcomeSkipped, outcome)
	}
	if err == nil {
		t.Error("missing tool must still surface an error")
	}
}

func writableRef(t *testing.T) *vhd.Reference {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ext4.vhdx")
	if err := os.WriteFile(path, []byte("vhdx"), 0644); err != nil {
		t.Fatalf("failed to write vhd: %v", err)
	}
	return &vhd.Reference{Path: path, Provenance: vhd.ProvenanceExplicit}
}
