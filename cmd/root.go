package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "adaptiq",
	Short: "Adaptive quiz engine",
	Long: `adaptiq runs adaptive quiz attempts: it serves questions matched to the
learner's ability, repeats missed questions, remediates weak topics and
records every attempt.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database DSN or SQLite path (overrides DB_DSN env var)")
	rootCmd.PersistentFlags().String("driver", "", "Database driver: sqlite or postgres (overrides DB_DRIVER env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(weaknessCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
}
