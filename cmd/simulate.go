package cmd

import (
	"fmt"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/adaptiq/internal/simulate"
	"github.com/abhisek/adaptiq/internal/ui/report"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted learner through a quiz attempt",
	Long: `Drive a simulated learner with a fixed accuracy through a full attempt
against the configured store, then print the results. Progress, attempts
and weakness records are written like a real attempt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, true)
		if err != nil {
			return err
		}
		defer e.close()

		f := cmd.Flags()
		opts := simulate.Options{}
		opts.UserID, _ = f.GetString("user")
		opts.Year, _ = f.GetString("year")
		opts.Subject, _ = f.GetString("subject")
		opts.Topic, _ = f.GetString("topic")
		opts.MaxQuestions, _ = f.GetInt("max")
		opts.Accuracy, _ = f.GetFloat64("accuracy")
		opts.HintRate, _ = f.GetFloat64("hint-rate")
		opts.TimeSpent, _ = f.GetFloat64("time")
		opts.Seed, _ = f.GetUint64("seed")
		if opts.Seed == 0 {
			opts.Seed = uint64(time.Now().UnixNano())
		}
		if opts.Accuracy < 0 || opts.Accuracy > 1 || opts.HintRate < 0 || opts.HintRate > 1 {
			return fmt.Errorf("--accuracy and --hint-rate must be between 0 and 1")
		}

		out, err := simulate.Run(cmd.Context(), e.svc, e.st.QuestionRepo(), opts)
		if err != nil {
			return err
		}

		for i, s := range out.Steps {
			mark := "x"
			if s.Correct {
				mark = "+"
			}
			hint := ""
			if s.HintShown {
				hint = " (hint)"
			}
			fmt.Printf("%2d. %s q%-6d %-12s %6.2f%s\n", i+1, mark, s.QuestionID, s.Phase, s.Points, hint)
		}
		fmt.Println()
		lipgloss.Print(report.Results(out.Results))
		return nil
	},
}

func init() {
	f := simulateCmd.Flags()
	f.String("user", "simulated-learner", "User id to simulate")
	f.String("year", "", "Quiz year (required)")
	f.String("subject", "", "Quiz subject (required)")
	f.String("topic", "", "Quiz topic (required)")
	f.Int("max", 0, "Question budget (0 uses DEFAULT_MAX_QUESTIONS)")
	f.Float64("accuracy", 0.7, "Probability of a correct answer")
	f.Float64("hint-rate", 0.3, "Probability of asking for an unlocked hint")
	f.Float64("time", 30, "Seconds spent per answer")
	f.Uint64("seed", 0, "Random seed (0 picks one)")
	_ = simulateCmd.MarkFlagRequired("year")
	_ = simulateCmd.MarkFlagRequired("subject")
	_ = simulateCmd.MarkFlagRequired("topic")
}
