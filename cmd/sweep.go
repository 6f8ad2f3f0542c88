package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete completed and abandoned sessions",
	Long: `Delete completed sessions older than the retention window and, when an
abandoned TTL is set, incomplete sessions idle for longer than it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, true)
		if err != nil {
			return err
		}
		defer e.close()

		retention := e.cfg.Sessions.CompletedRetention
		if cmd.Flags().Changed("retention") {
			retention, _ = cmd.Flags().GetDuration("retention")
		}
		abandoned := e.cfg.Sessions.AbandonedTTL
		if cmd.Flags().Changed("abandoned") {
			abandoned, _ = cmd.Flags().GetDuration("abandoned")
		}

		n, err := e.svc.Sweep(cmd.Context(), retention, abandoned)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		fmt.Printf("Removed %d sessions\n", n)
		return nil
	},
}

func init() {
	sweepCmd.Flags().Duration("retention", 0, "Keep completed sessions this long (overrides COMPLETED_RETENTION)")
	sweepCmd.Flags().Duration("abandoned", 0, "Remove incomplete sessions idle this long, 0 disables (overrides ABANDONED_TTL)")
}

// sweepLoop runs the configured sweep every interval until ctx ends.
func sweepLoop(ctx context.Context, e *env, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := e.svc.Sweep(ctx, e.cfg.Sessions.CompletedRetention, e.cfg.Sessions.AbandonedTTL); err != nil {
				e.log.Warn("periodic sweep failed", "error", err)
			}
		}
	}
}
