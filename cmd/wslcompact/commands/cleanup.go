package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/wsltools/wslcompact/internal/config"
	"github.com/wsltools/wslcompact/pkg/db"
	"github.com/wsltools/wslcompact/pkg/errors"
)

var cleanupRetentionDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune old run history and stale rotated log files",
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().IntVar(&cleanupRetentionDays, "retention-days", 0,
		"Override the configured history retention window")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	days := cfg.HistoryRetentionDays
	if cleanupRetentionDays > 0 {
		days = cleanupRetentionDays
	}

	if err := ensureDirectories(cfg.SQLitePath, "", ""); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	pruned, err := repo.PruneOlderThan(days)
	if err != nil {
		return errors.Wrap(err, "prune failed")
	}
	fmt.Printf("Pruned %d runs older than %d days\n", pruned, days)

	removed, err := cleanupLogFiles(cfg.LogDir, days)
	if err != nil {
		return errors.Wrap(err, "log cleanup failed")
	}
	fmt.Printf("Removed %d stale log files\n", removed)

	return nil
}

// cleanupLogFiles removes rotated log files older than the retention
// window. The active latest.log is always kept.
func cleanupLogFiles(logDir string, days int) (int, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == "latest.log" {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".log") && !strings.HasSuffix(entry.Name(), ".log.gz") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(logDir, entry.Name())
		if err := os.Remove(path); err != nil {
			fmt.Printf("Failed to remove %s: %v\n", entry.Name(), err)
			continue
		}
		removed++
	}

	return removed, nil
}
