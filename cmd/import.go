package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptiq/internal/pool"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>...",
	Short: "Import question pools from JSON files",
	Long: `Validate each file against the question-pool schema and upsert its
questions. A file that fails validation is not imported at all.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.close()

		repo := e.st.QuestionRepo()
		for _, path := range args {
			rep, err := pool.ImportFile(cmd.Context(), repo, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Printf("%s: %d questions\n", path, rep.Imported)
			for _, k := range slices.Sorted(maps.Keys(rep.Topics)) {
				fmt.Printf("  %-40s %d\n", k, rep.Topics[k])
			}
		}

		n, err := repo.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("\n%d questions in store\n", n)
		return nil
	},
}
