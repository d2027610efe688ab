// Package wsl drives the host's WSL command-line surface.
package wsl

import "context"

// Host is the WSL interaction surface the workflow depends on. The real
// implementation shells out to wsl.exe; tests substitute fakes.
type Host interface {
	// UserActive reports whether any process exists for the user inside
	// the distro. Best effort: an unknown user counts as inactive.
	UserActive(ctx context.Context, distro, user string) (bool, error)

	// LogoutUser force-terminates every process of the user inside the
	// distro. It does not wait for the session to drain.
	LogoutUser(ctx context.Context, distro, user string) error

	// Terminate stops the distro and shuts down the WSL VM so the
	// backing disk file is released.
	Terminate(ctx context.Context, distro string) error

	// Launch starts a background session in the distro for the user.
	Launch(ctx context.Context, distro, user string) error

	// ListDistros returns the names of the registered distros.
	ListDistros(ctx context.Context) ([]string, error)
}
