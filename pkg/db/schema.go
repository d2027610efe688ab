package db

// Schema defines the SQLite schema for the run history: one row per
// workflow run, keyed by the run UUID.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL UNIQUE,
    distro TEXT NOT NULL,
    user_name TEXT NOT NULL,
    vhd_path TEXT,
    provenance TEXT,
    session_state TEXT,
    outcome TEXT,
    status TEXT NOT NULL CHECK(status IN ('running', 'success', 'failure', 'cancelled')),
    dry_run INTEGER NOT NULL DEFAULT 0,
    relaunch_attempted INTEGER NOT NULL DEFAULT 0,
    relaunch_succeeded INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_run_id ON runs(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Status constants for run records.
const (
	StatusRunning   = "running"
	StatusSuccess   = "success"
	StatusFailure   = "failure"
	StatusCancelled = "cancelled"
)

// Run is one recorded workflow run.
type Run struct {
	ID                int64
	RunID             string
	Distro            string
	User              string
	VHDPath           string
	Provenance        string
	SessionState      string
	Outcome           string
	Status            string
	DryRun            bool
	RelaunchAttempted bool
	RelaunchSucceeded bool
	ErrorMessage      string
	StartedAt         string
	FinishedAt        string
}
