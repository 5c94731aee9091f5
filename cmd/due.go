package cmd

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/abhisek/vocab/internal/spacedrep"
	"github.com/spf13/cobra"
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List words due for review, most overdue first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		limit := a.cfg.DailyLimit
		if cmd.Flags().Changed("limit") {
			limit, _ = cmd.Flags().GetInt("limit")
		}

		ctx := cmd.Context()
		now := a.now()
		states, err := a.ctrl.Snapshot(ctx)
		if err != nil {
			return err
		}
		ids := spacedrep.DueItems(states, now, limit)

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "Nothing due. Come back later.")
			return nil
		}

		fmt.Fprintf(out, "%-30s  %-9s  %8s  %5s\n", "Word", "Phase", "Overdue", "Ease")
		fmt.Fprintln(out, strings.Repeat("─", 58))
		for _, id := range ids {
			st := states[id]
			fmt.Fprintf(out, "%-30s  %-9s  %7.1fd  %5.2f\n",
				truncate(string(id), 30), st.Phase, st.OverdueDays(now), st.EaseFactor)
		}
		fmt.Fprintf(out, "\n%d of %d due\n", len(ids), spacedrep.CountDue(states, now))
		return nil
	},
}

func init() {
	dueCmd.Flags().Int("limit", 0, "Maximum number of words to list (default: daily_limit from config, 0 = all)")
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
