// Package cmd holds the vessel CLI: inspection and cleanup commands for
// containers managed by the lifecycle library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vesselhq/vessel/internal/config"
	"github.com/vesselhq/vessel/pkg/logger"
)

var (
	BuildVersion = "dev"
	BuildCommit  = "none"
	BuildDate    = "unknown"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "vessel",
	Short: "Vessel - ephemeral container manager",
	Long: `Vessel manages throwaway containers for integration tests: it starts them,
waits until they are ready, and cleans them up by session labels.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger.SetLevel(cfg.LogLevel)
		return nil
	},
}

func Execute(version, commit, date string) {
	if version != "" {
		BuildVersion = version
	}
	if commit != "" {
		BuildCommit = commit
	}
	if date != "" {
		BuildDate = date
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}
