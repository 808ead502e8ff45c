package main

import (
	"fmt"
	"os"

	"github.com/branched-services/go-hop/internal/config"
	"github.com/spf13/cobra"
)

// GlobalFlags are shared by every subcommand.
type GlobalFlags struct {
	ConfigFile string
	LogLevel   string
}

var (
	globalFlags GlobalFlags
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hopd",
	Short: "Run and operate a hop contract",
	Long: `hopd hosts one hop contract.

It executes single-shot transfers, swaps, mints and notifications, and runs
hop chains: a list of commands executed one at a time against a target
contract, each resumed by the acknowledgement of the previous one.

Settings come from a YAML file overlaid with HOP_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(globalFlags.ConfigFile)
		if err != nil {
			return err
		}
		if globalFlags.LogLevel != "" {
			cfg.Log.Level = globalFlags.LogLevel
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "override log.level (debug|info|warn|error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(cancelCmd)
}
