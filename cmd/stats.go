package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/vocab/internal/spacedrep"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		states, err := a.ctrl.Snapshot(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		counts := spacedrep.PhaseCounts(states)
		fmt.Fprintf(out, "Words:     %d\n", len(states))
		fmt.Fprintf(out, "Due now:   %d\n", spacedrep.CountDue(states, a.now()))
		fmt.Fprintf(out, "New:       %d\n", counts[spacedrep.PhaseNew])
		fmt.Fprintf(out, "Learning:  %d\n", counts[spacedrep.PhaseLearning])
		fmt.Fprintf(out, "Review:    %d\n", counts[spacedrep.PhaseReview])
		fmt.Fprintf(out, "Lapsed:    %d\n", counts[spacedrep.PhaseLapsed])

		n, _ := cmd.Flags().GetInt("days")
		recent, err := a.days.Days(ctx, n)
		if err != nil {
			return err
		}
		if len(recent) == 0 {
			return nil
		}

		fmt.Fprintf(out, "\n%-10s  %8s  %5s  %6s  %7s\n", "Day", "Reviewed", "New", "Lapsed", "Matured")
		fmt.Fprintln(out, strings.Repeat("─", 44))
		for _, d := range recent {
			fmt.Fprintf(out, "%-10s  %8d  %5d  %6d  %7d\n",
				d.Day, d.Reviewed, d.Introduced, d.Lapsed, d.Matured)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Int("days", 7, "Number of recent days to list (0 = all)")
}
