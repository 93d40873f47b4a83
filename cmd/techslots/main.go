package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "techslots",
		Short:         "Technician slot derivation and booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (%s)", Version, CommitSHA),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional.
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default $TECHSLOTS_CONFIG_PATH or configs/config.yaml)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newSlotsCmd(&configPath))
	root.AddCommand(newKeyCmd())
	root.AddCommand(newExportCmd(&configPath))

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
