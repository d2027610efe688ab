package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wsltools/wslcompact/internal/config"
	"github.com/wsltools/wslcompact/pkg/errors"
	"github.com/wsltools/wslcompact/pkg/security"
	"github.com/wsltools/wslcompact/pkg/vhd"
)

var detectDistro string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Locate a distro's VHDX file without touching it",
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().StringVar(&detectDistro, "distro", "Ubuntu", "Target WSL distribution")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	distro := strings.TrimSpace(detectDistro)
	validator := security.NewValidator(security.DefaultMaxNameLength)
	if err := validator.ValidateDistroName(distro); err != nil {
		return err
	}

	locator := vhd.NewLocator(cfg.SearchRoots...)
	ref, err := locator.Resolve(distro, "")
	if err != nil {
		return errors.Wrap(err, "detection failed")
	}

	fmt.Printf("%-12s %s\n", "VHDX:", ref.Path)
	fmt.Printf("%-12s %s\n", "Provenance:", ref.Provenance)
	return nil
}
