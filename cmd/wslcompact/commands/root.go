package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "wslcompact",
	Short: "WSL2 VHD compaction - shrink a distro's virtual disk safely",
	Long: `Shrinks a WSL2 distribution's backing virtual disk: logs the user out,
verifies the session is gone, stops the distro, runs DiskPart against the
VHDX file, and optionally relaunches the distro.`,
	SilenceUsage: true,
}

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.msg != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", ee.msg)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("sqlite-path", "", "Run-history SQLite database path")
	rootCmd.PersistentFlags().String("fsm-db-path", "", "Workflow state machine database directory")
	rootCmd.PersistentFlags().String("log-dir", "", "Rotating log file directory")
	rootCmd.PersistentFlags().Int("verify-attempts", 5, "Logout verification poll attempts")
	rootCmd.PersistentFlags().Duration("verify-interval", 0, "Interval between logout verification polls")
	rootCmd.PersistentFlags().Bool("verify-timeout-fatal", false, "Treat logout verification timeout as a failure")
	rootCmd.PersistentFlags().String("archive-bucket", "", "S3 bucket for run log archival (empty disables)")
	rootCmd.PersistentFlags().String("archive-region", "us-east-1", "S3 region for run log archival")

	viper.BindPFlag("sqlite-path", rootCmd.PersistentFlags().Lookup("sqlite-path"))
	viper.BindPFlag("fsm-db-path", rootCmd.PersistentFlags().Lookup("fsm-db-path"))
	viper.BindPFlag("log-dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("verify-attempts", rootCmd.PersistentFlags().Lookup("verify-attempts"))
	viper.BindPFlag("verify-interval", rootCmd.PersistentFlags().Lookup("verify-interval"))
	viper.BindPFlag("verify-timeout-fatal", rootCmd.PersistentFlags().Lookup("verify-timeout-fatal"))
	viper.BindPFlag("archive-bucket", rootCmd.PersistentFlags().Lookup("archive-bucket"))
	viper.BindPFlag("archive-region", rootCmd.PersistentFlags().Lookup("archive-region"))
}
