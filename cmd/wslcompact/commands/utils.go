package commands

import (
	"os"
	"path/filepath"

	"github.com/wsltools/wslcompact/pkg/errors"
)

// ensureDirectories creates the state directories a command needs.
// Empty arguments are skipped.
func ensureDirectories(sqlitePath, fsmDBPath, logDir string) error {
	if sqlitePath != "" {
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return errors.Wrap(err, "failed to create database directory")
		}
	}

	if fsmDBPath != "" {
		if err := os.MkdirAll(fsmDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create log directory")
		}
	}

	return nil
}
