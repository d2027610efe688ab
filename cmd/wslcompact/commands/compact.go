package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wsltools/wslcompact/internal/config"
	"github.com/wsltools/wslcompact/pkg/compactor"
	"github.com/wsltools/wslcompact/pkg/db"
	"github.com/wsltools/wslcompact/pkg/errors"
	"github.com/wsltools/wslcompact/pkg/eventlog"
	"github.com/wsltools/wslcompact/pkg/security"
	"github.com/wsltools/wslcompact/pkg/storage"
	"github.com/wsltools/wslcompact/pkg/vhd"
	"github.com/wsltools/wslcompact/pkg/workflow"
	"github.com/wsltools/wslcompact/pkg/wsl"
)

var (
	compactDistro     string
	compactUser       string
	compactVHD        string
	compactDryRun     bool
	compactNoRelaunch bool
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Log the user out, compact the distro's VHD, and relaunch",
	Long: `Runs the full compaction workflow against one distro:
locate the VHDX, kill the user's session, verify it is gone, stop the
distro, run DiskPart compact, and relaunch unless --no-relaunch.

Exit codes: 0 success, 1 failure, 130 cancelled.`,
	RunE: runCompact,
}

func init() {
	rootCmd.AddCommand(compactCmd)
	compactCmd.Flags().StringVar(&compactDistro, "distro", "Ubuntu", "Target WSL distribution")
	compactCmd.Flags().StringVar(&compactUser, "user", "ubuntu", "Target user inside the distribution")
	compactCmd.Flags().StringVar(&compactVHD, "vhd", "", "Explicit VHDX path (skips auto-detection)")
	compactCmd.Flags().BoolVar(&compactDryRun, "dry-run", false, "Simulate every action without touching the system")
	compactCmd.Flags().BoolVar(&compactNoRelaunch, "no-relaunch", false, "Leave the distro stopped after compaction")
}

func runCompact(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	if err := ensureDirectories(cfg.SQLitePath, cfg.FSMDBPath, cfg.LogDir); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	req := workflow.Request{
		Distro:   strings.TrimSpace(compactDistro),
		User:     strings.TrimSpace(compactUser),
		VHDPath:  strings.TrimSpace(compactVHD),
		Relaunch: !compactNoRelaunch,
		DryRun:   compactDryRun,
		RunID:    uuid.NewString(),
	}

	record := &db.Run{
		RunID:   req.RunID,
		Distro:  req.Distro,
		User:    req.User,
		VHDPath: req.VHDPath,
		Status:  db.StatusRunning,
		DryRun:  req.DryRun,
	}
	if err := repo.Create(record); err != nil {
		return errors.Wrap(err, "run record failed")
	}

	fileSink := eventlog.NewFileSink(cfg.LogDir)
	defer fileSink.Close()

	orch := workflow.NewOrchestrator(
		vhd.NewLocator(cfg.SearchRoots...),
		wsl.NewExecHost(cfg.WSLPath),
		compactor.New(compactor.NewDiskPartRunner(cfg.DiskPartPath)),
		security.NewValidator(security.DefaultMaxNameLength),
		workflow.Options{
			FSMDBPath:          cfg.FSMDBPath,
			VerifyAttempts:     cfg.VerifyAttempts,
			VerifyInterval:     cfg.VerifyInterval,
			VerifyTimeoutFatal: cfg.VerifyTimeoutFatal,
			Sinks:              []eventlog.Sink{eventlog.ConsoleSink{W: os.Stdout}, fileSink},
		},
	)

	result, err := orch.Run(ctx, req)
	if err != nil {
		record.Status = db.StatusFailure
		record.ErrorMessage = err.Error()
		if ferr := repo.Finish(record); ferr != nil {
			slog.Warn("run record finish failed", "run_id", req.RunID, "error", ferr)
		}
		return errors.Wrap(err, "workflow failed")
	}

	finishRecord(record, result)
	if err := repo.Finish(record); err != nil {
		slog.Warn("run record finish failed", "run_id", req.RunID, "error", err)
	}

	if cfg.ArchiveBucket != "" {
		archiveRun(ctx, cfg, record, result)
	}

	if code := result.ExitCode(); code != 0 {
		return &exitError{code: code, msg: result.ErrorMessage}
	}
	return nil
}

func finishRecord(record *db.Run, result *workflow.Result) {
	if result.VHD != nil {
		record.VHDPath = result.VHD.Path
		record.Provenance = string(result.VHD.Provenance)
	}
	record.SessionState = string(result.SessionState)
	record.Outcome = string(result.Outcome)
	record.Status = string(result.Status)
	record.RelaunchAttempted = result.RelaunchAttempted
	record.RelaunchSucceeded = result.RelaunchSucceeded
	record.ErrorMessage = result.ErrorMessage
}

// archiveRun uploads the run log and record to S3. Failures only warn;
// archival never changes the run's outcome.
func archiveRun(ctx context.Context, cfg *config.Config, record *db.Run, result *workflow.Result) {
	client, err := storage.NewClient(ctx, cfg.ArchiveBucket, cfg.ArchiveRegion)
	if err != nil {
		slog.Warn("archive client failed", "error", err)
		return
	}

	var sb strings.Builder
	for _, ev := range result.Events {
		sb.WriteString(ev.String())
		sb.WriteByte('\n')
	}
	logKey := fmt.Sprintf("runs/%s.log", record.RunID)
	if err := client.Upload(ctx, logKey, sb.String(), "text/plain"); err != nil {
		slog.Warn("archive upload failed", "key", logKey, "error", err)
	}

	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		slog.Warn("archive marshal failed", "run_id", record.RunID, "error", err)
		return
	}
	jsonKey := fmt.Sprintf("runs/%s.json", record.RunID)
	if err := client.Upload(ctx, jsonKey, string(payload), "application/json"); err != nil {
		slog.Warn("archive upload failed", "key", jsonKey, "error", err)
	}
}
