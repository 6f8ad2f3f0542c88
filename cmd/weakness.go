package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/adaptiq/internal/ui/report"
)

var weaknessCmd = &cobra.Command{
	Use:   "weakness <user-id>",
	Short: "Show a learner's weakness records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.close()

		recs, err := e.st.WeaknessRepo().ListByUser(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("list weakness records: %w", err)
		}
		lipgloss.Print(report.Weakness(args[0], recs))
		return nil
	},
}
