package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/abhisek/vocab/internal/review"
	"github.com/abhisek/vocab/internal/spacedrep"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review <word> <again|hard|good|easy>",
	Short: "Record one review of a word",
	Long: `Record how well you recalled a word and reschedule it.

The grade is one of again, hard, good or easy (or 1-4).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := spacedrep.ParseSignal(args[1])
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		at := a.now()
		if raw, _ := cmd.Flags().GetString("at"); raw != "" {
			at, err = time.Parse(time.RFC3339, raw)
			if err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}
		}

		out, err := a.ctrl.Grade(cmd.Context(), spacedrep.ReviewEvent{
			ItemID:     spacedrep.ItemID(args[0]),
			Signal:     sig,
			OccurredAt: at,
		})
		if err != nil {
			return err
		}
		printOutcome(cmd.OutOrStdout(), out, a.loc)
		return nil
	},
}

func init() {
	reviewCmd.Flags().String("at", "", "Review time in RFC 3339 (default: now)")
}

func printOutcome(w io.Writer, out review.Outcome, loc *time.Location) {
	if out.Duplicate {
		fmt.Fprintf(w, "%s: review already recorded, nothing changed.\n", out.ItemID)
		return
	}
	fmt.Fprintf(w, "%s: %s → next review in %s (%s), ease %.2f, %s\n",
		out.ItemID, out.Signal, days(out.After.IntervalDays),
		out.After.NextDueAt.In(loc).Format("Mon Jan 2 15:04"),
		out.After.EaseFactor, out.After.Phase)
}

func days(n int) string {
	switch n {
	case 0:
		return "now"
	case 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", n)
	}
}
