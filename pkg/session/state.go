// Package session terminates and verifies user sessions inside a distro.
package session

// State tracks a user session during one workflow run. Transitions only
// move forward, except the initial Unknown -> LoggedIn probe and the
// jump to VerificationTimedOut when retries are exhausted.
type State string

const (
	StateUnknown              State = "unknown"
	StateLoggedIn             State = "logged_in"
	StateTerminationRequested State = "termination_requested"
	StateConfirmedLoggedOut   State = "confirmed_logged_out"
	StateVerificationTimedOut State = "verification_timed_out"
)
