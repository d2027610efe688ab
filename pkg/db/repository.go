// Package db persists the workflow run history in SQLite.
package db

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/wsltools/wslcompact/pkg/errors"
	_ "modernc.org/sqlite"
)

// Repository provides database operations for run records.
type Repository struct {
	db *sql.DB
}

// NewRepository opens the database and creates the schema.
func NewRepository(dbPath string) (*Repository, error) {
	slog.Info("database_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("database_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open database")
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("database_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create schema")
	}

	slog.Info("database_ready", "db_path", dbPath)
	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new run record in the running state.
func (r *Repository) Create(run *Run) error {
	slog.Info("database_create_run", "run_id", run.RunID, "distro", run.Distro, "user", run.User)

	query := `
		INSERT INTO runs (run_id, distro, user_name, vhd_path, provenance, session_state,
		                  outcome, status, dry_run, relaunch_attempted, relaunch_succeeded, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query,
		run.RunID, run.Distro, run.User, run.VHDPath, run.Provenance, run.SessionState,
		run.Outcome, run.Status, boolInt(run.DryRun), boolInt(run.RelaunchAttempted),
		boolInt(run.RelaunchSucceeded), run.ErrorMessage)
	if err != nil {
		slog.Error("database_insert_failed", "run_id", run.RunID, "error", err)
		return errors.Wrap(err, "failed to insert run")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get last insert id")
	}
	run.ID = id

	return nil
}

// Finish records the terminal fields of a run.
func (r *Repository) Finish(run *Run) error {
	slog.Info("database_finish_run", "run_id", run.RunID, "status", run.Status, "outcome", run.Outcome)

	query := `
		UPDATE runs
		SET vhd_path = ?, provenance = ?, session_state = ?, outcome = ?, status = ?,
		    relaunch_attempted = ?, relaunch_succeeded = ?, error_message = ?,
		    finished_at = CURRENT_TIMESTAMP
		WHERE run_id = ?
	`
	result, err := r.db.Exec(query,
		run.VHDPath, run.Provenance, run.SessionState, run.Outcome, run.Status,
		boolInt(run.RelaunchAttempted), boolInt(run.RelaunchSucceeded), run.ErrorMessage,
		run.RunID)
	if err != nil {
		slog.Error("database_finish_failed", "run_id", run.RunID, "error", err)
		return errors.Wrap(err, "failed to finish run")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", run.RunID)
	}
	return nil
}

const runColumns = `id, run_id, distro, user_name, vhd_path, provenance, session_state,
	outcome, status, dry_run, relaunch_attempted, relaunch_succeeded, error_message,
	started_at, finished_at`

// GetByRunID retrieves a run by its UUID, or nil when absent.
func (r *Repository) GetByRunID(runID string) (*Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("database_query_failed", "run_id", runID, "error", err)
		return nil, errors.Wrap(err, "failed to query run")
	}
	return run, nil
}

// List retrieves all runs, newest first.
func (r *Repository) List() ([]*Run, error) {
	rows, err := r.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`)
	if err != nil {
		slog.Error("database_list_query_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}

	slog.Info("database_list_complete", "run_count", len(runs))
	return runs, nil
}

// Delete removes a run by its UUID.
func (r *Repository) Delete(runID string) error {
	slog.Info("database_delete_run", "run_id", runID)

	_, err := r.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	return errors.Wrap(err, "failed to delete run")
}

// PruneOlderThan deletes finished runs older than the given number of
// days and returns how many were removed.
func (r *Repository) PruneOlderThan(days int) (int64, error) {
	slog.Info("database_prune", "days", days)

	query := `DELETE FROM runs WHERE status != ? AND started_at < datetime('now', ?)`
	result, err := r.db.Exec(query, StatusRunning, fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune runs")
	}

	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}

	slog.Info("database_prune_complete", "pruned", pruned)
	return pruned, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var vhdPath, provenance, sessionState, outcome, errorMessage, finishedAt sql.NullString
	var dryRun, relaunchAttempted, relaunchSucceeded int

	err := s.Scan(
		&run.ID, &run.RunID, &run.Distro, &run.User,
		&vhdPath, &provenance, &sessionState, &outcome, &run.Status,
		&dryRun, &relaunchAttempted, &relaunchSucceeded, &errorMessage,
		&run.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.VHDPath = vhdPath.String
	run.Provenance = provenance.String
	run.SessionState = sessionState.String
	run.Outcome = outcome.String
	run.ErrorMessage = errorMessage.String
	run.FinishedAt = finishedAt.String
	run.DryRun = dryRun != 0
	run.RelaunchAttempted = relaunchAttempted != 0
	run.RelaunchSucceeded = relaunchSucceeded != 0

	return &run, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
