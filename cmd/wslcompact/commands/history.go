package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wsltools/wslcompact/internal/config"
	"github.com/wsltools/wslcompact/pkg/db"
	"github.com/wsltools/wslcompact/pkg/errors"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past compaction runs and their outcomes",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	// Only the database directory is needed here
	if err := ensureDirectories(cfg.SQLitePath, "", ""); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	runs, err := repo.List()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	fmt.Printf("%-36s %-14s %-10s %-10s %-24s %-6s %s\n",
		"RUN ID", "DISTRO", "STATUS", "OUTCOME", "STARTED", "DRY", "ERROR")
	fmt.Println("--------------------------------------------------------------------------------------------------------------")

	for _, run := range runs {
		outcome := run.Outcome
		if outcome == "" {
			outcome = "-"
		}
		dry := "no"
		if run.DryRun {
			dry = "yes"
		}
		errMsg := run.ErrorMessage
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}
		fmt.Printf("%-36s %-14s %-10s %-10s %-24s %-6s %s\n",
			run.RunID, run.Distro, run.Status, outcome, run.StartedAt, dry, errMsg)
	}

	return nil
}
