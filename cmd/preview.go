package cmd

import (
	"fmt"

	"github.com/abhisek/vocab/internal/spacedrep"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview <word>",
	Short: "Show the interval each grade would give a word right now",
	Long: `Show the next interval for each possible grade without recording a review.

Nothing is written to the database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.ctrl.State(cmd.Context(), spacedrep.ItemID(args[0]))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		preview := a.ctrl.Scheduler().Preview(st, a.now())
		for _, sig := range spacedrep.Signals {
			fmt.Fprintf(out, "  %-6s  %s\n", sig, days(preview[sig]))
		}
		return nil
	},
}
