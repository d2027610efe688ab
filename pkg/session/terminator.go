package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	wrap "github.com/wsltools/wslcompact/pkg/errors"
	"github.com/wsltools/wslcompact/pkg/wsl"
)

// ErrTerminate marks a logout request that could not be issued, e.g.
// because the distro name is unknown to the host.
var ErrTerminate = errors.New("session termination failed")

// Terminator issues logout and shutdown requests. It never waits for
// the session to actually end; that is the Verifier's job so timing
// policy can change without touching the signal mechanism.
type Terminator struct {
	host wsl.Host
}

// NewTerminator creates a terminator over the given host layer.
func NewTerminator(host wsl.Host) *Terminator {
	return &Terminator{host: host}
}

// Terminate sends the logout signal for the user's session.
func (t *Terminator) Terminate(ctx context.Context, distro, user string) error {
	slog.Info("session_terminate", "distro", distro, "user", user)

	if err := t.host.LogoutUser(ctx, distro, user); err != nil {
		slog.Error("session_terminate_failed", "distro", distro, "user", user, "error", err)
		return fmt.Errorf("%w: %v", ErrTerminate, err)
	}
	return nil
}

// StopDistro stops the distro so the backing disk file is released.
// Called after verification, immediately before compaction.
func (t *Terminator) StopDistro(ctx context.Context, distro string) error {
	slog.Info("session_stop_distro", "distro", distro)
	return wrap.Wrap(t.host.Terminate(ctx, distro), "stop distro")
}
