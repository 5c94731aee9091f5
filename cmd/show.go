package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/vocab/internal/spacedrep"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <word>",
	Short: "Show a word's schedule and review history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		id := spacedrep.ItemID(args[0])
		st, err := a.ctrl.State(ctx, id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		now := a.now()
		const layout = "2006-01-02 15:04"

		fmt.Fprintf(out, "%s\n", id)
		fmt.Fprintf(out, "  Phase:        %s\n", st.Phase)
		fmt.Fprintf(out, "  Ease:         %.2f\n", st.EaseFactor)
		fmt.Fprintf(out, "  Interval:     %s\n", days(st.IntervalDays))
		fmt.Fprintf(out, "  Repetitions:  %d\n", st.RepetitionCount)
		fmt.Fprintf(out, "  Lapses:       %d\n", st.LapseCount)
		if st.Reviewed() {
			fmt.Fprintf(out, "  Last review:  %s\n", st.LastReviewedAt.In(a.loc).Format(layout))
		} else {
			fmt.Fprintf(out, "  Last review:  never\n")
		}
		if st.IsDue(now) {
			fmt.Fprintf(out, "  Next review:  due now\n")
		} else {
			fmt.Fprintf(out, "  Next review:  %s (in %s)\n",
				st.NextDueAt.In(a.loc).Format(layout), days(st.DaysUntilDue(now)))
		}

		if a.history == nil {
			return nil
		}
		limit, _ := cmd.Flags().GetInt("history")
		entries, err := a.history.History(ctx, id, limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		fmt.Fprintf(out, "\n  %-16s  %-6s  %8s  %5s  %s\n", "Reviewed", "Grade", "Interval", "Ease", "Phase")
		fmt.Fprintf(out, "  %s\n", strings.Repeat("─", 54))
		for _, e := range entries {
			fmt.Fprintf(out, "  %-16s  %-6s  %7dd  %5.2f  %s\n",
				e.OccurredAt.In(a.loc).Format(layout), e.Signal, e.IntervalDays, e.EaseFactor, e.Phase)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().Int("history", 10, "Number of past reviews to list (0 = all)")
}
