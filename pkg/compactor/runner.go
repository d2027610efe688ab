package compactor

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
)

// Runner executes a prepared DiskPart script file and returns the
// tool's combined output.
type Runner interface {
	Run(ctx context.Context, scriptPath string) (string, error)
}

// DiskPartRunner invokes diskpart.exe /s <script>.
type DiskPartRunner struct {
	exePath string
}

// NewDiskPartRunner creates a runner for the given executable. An empty
// path means "diskpart.exe" from PATH.
func NewDiskPartRunner(exePath string) *DiskPartRunner {
	if exePath == "" {
		exePath = "diskpart.exe"
	}
	return &DiskPartRunner{exePath: exePath}
}

func (r *DiskPartRunner) Run(ctx context.Context, scriptPath string) (string, error) {
	slog.Info("diskpart_run", "exe", r.exePath, "script", scriptPath)

	cmd := exec.CommandContext(ctx, r.exePath, "/s", scriptPath)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// IsToolMissing reports whether err means the tool executable could not
// be found on this host.
func IsToolMissing(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
