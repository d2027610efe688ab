package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wsltools/wslcompact/internal/config"
	"github.com/wsltools/wslcompact/pkg/errors"
	"github.com/wsltools/wslcompact/pkg/wsl"
)

var distrosCmd = &cobra.Command{
	Use:   "distros",
	Short: "List registered WSL distributions",
	RunE:  runDistros,
}

func init() {
	rootCmd.AddCommand(distrosCmd)
}

func runDistros(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	host := wsl.NewExecHost(cfg.WSLPath)
	distros, err := host.ListDistros(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "distro listing failed")
	}

	if len(distros) == 0 {
		fmt.Println("No distributions registered")
		return nil
	}

	for _, name := range distros {
		fmt.Println(name)
	}
	return nil
}
