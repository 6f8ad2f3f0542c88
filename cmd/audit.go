package cmd

import (
	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/adaptiq/internal/store"
	"github.com/abhisek/adaptiq/internal/ui/report"
)

var auditCmd = &cobra.Command{
	Use:   "audit <session-id>",
	Short: "Show the recorded answers and hints of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, true)
		if err != nil {
			return err
		}
		defer e.close()

		limit, _ := cmd.Flags().GetInt("limit")
		res, err := e.svc.Audit(cmd.Context(), args[0], store.QueryOpts{Limit: limit})
		if err != nil {
			return err
		}
		lipgloss.Print(report.Audit(res))
		return nil
	},
}

func init() {
	auditCmd.Flags().Int("limit", 0, "Maximum number of answers to show (0 = all)")
}
