package wsl

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/wsltools/wslcompact/pkg/errors"
)

// ExecHost talks to WSL through the wsl executable.
type ExecHost struct {
	wslPath string
}

// NewExecHost creates a host layer driving the given wsl executable.
// An empty path means "wsl" from PATH.
func NewExecHost(wslPath string) *ExecHost {
	if wslPath == "" {
		wslPath = "wsl"
	}
	slog.Info("wsl_host_init", "wsl_path", wslPath)
	return &ExecHost{wslPath: wslPath}
}

// rootShell runs a bash command as root inside the distro and returns
// combined output.
func (h *ExecHost) rootShell(ctx context.Context, distro, bashCmd string) (string, error) {
	cmd := exec.CommandContext(ctx, h.wslPath, "-d", distro, "-u", "root", "-e", "bash", "-lc", bashCmd)
	out, err := cmd.CombinedOutput()
	return sanitize(string(out)), err
}

func (h *ExecHost) UserActive(ctx context.Context, distro, user string) (bool, error) {
	// If the user does not exist, report inactive rather than failing.
	probe := fmt.Sprintf(
		"if id -u %s >/dev/null 2>&1; then pgrep -u %s >/dev/null 2>&1; echo $?; else echo 1; fi",
		user, user)

	out, err := h.rootShell(ctx, distro, probe)
	if err != nil {
		slog.Error("wsl_activity_probe_failed", "distro", distro, "user", user, "error", err, "output", out)
		return false, errors.Wrap(err, fmt.Sprintf("activity probe for %s@%s failed", user, distro))
	}

	active := strings.HasSuffix(strings.TrimSpace(out), "0")
	slog.Info("wsl_activity_probe", "distro", distro, "user", user, "active", active)
	return active, nil
}

func (h *ExecHost) LogoutUser(ctx context.Context, distro, user string) error {
	slog.Info("wsl_logout_user", "distro", distro, "user", user)

	// pkill returns nonzero when the user has no processes; that is fine.
	kill := fmt.Sprintf("if id -u %s >/dev/null 2>&1; then pkill -KILL -u %s || true; fi", user, user)

	out, err := h.rootShell(ctx, distro, kill)
	if err != nil {
		slog.Error("wsl_logout_failed", "distro", distro, "user", user, "error", err, "output", out)
		return errors.Wrap(err, fmt.Sprintf("logout request for %s@%s failed", user, distro))
	}
	return nil
}

func (h *ExecHost) Terminate(ctx context.Context, distro string) error {
	slog.Info("wsl_terminate", "distro", distro)

	if out, err := exec.CommandContext(ctx, h.wslPath, "--terminate", distro).CombinedOutput(); err != nil {
		// Terminating an already-stopped distro fails; not an error for us.
		slog.Warn("wsl_terminate_nonzero", "distro", distro, "error", err, "output", sanitize(string(out)))
	}

	if out, err := exec.CommandContext(ctx, h.wslPath, "--shutdown").CombinedOutput(); err != nil {
		slog.Error("wsl_shutdown_failed", "error", err, "output", sanitize(string(out)))
		return errors.Wrap(err, "wsl shutdown failed")
	}

	slog.Info("wsl_terminated", "distro", distro)
	return nil
}

func (h *ExecHost) Launch(ctx context.Context, distro, user string) error {
	slog.Info("wsl_launch", "distro", distro, "user", user)

	// Background start so the distro is up for the user; the session is
	// not ours to wait on. Deliberately not bound to ctx: the session
	// must outlive the command that requested it.
	cmd := exec.Command(h.wslPath, "-d", distro, "-u", user)
	if err := cmd.Start(); err != nil {
		slog.Error("wsl_launch_failed", "distro", distro, "user", user, "error", err)
		return errors.Wrap(err, fmt.Sprintf("launch of %s@%s failed", user, distro))
	}
	go cmd.Wait()

	return nil
}

func (h *ExecHost) ListDistros(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, h.wslPath, "-l", "-q").CombinedOutput()
	if err != nil {
		return nil, errors.Wrap(err, "wsl list failed")
	}

	var distros []string
	for _, line := range strings.Split(sanitize(string(out)), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			distros = append(distros, name)
		}
	}
	return distros, nil
}

// sanitize strips the NUL bytes and carriage returns wsl.exe emits
// (its output is UTF-16 on some hosts).
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ReplaceAll(s, "\r", "")
}
