package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abhisek/vocab/internal/review"
	"github.com/abhisek/vocab/internal/spacedrep"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Review every due word interactively",
	Long: `Walk through the words that are due, most overdue first.

For each word, answer with again, hard, good or easy (or 1-4).
Type s to skip a word and q to stop early.`,
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
		s, err := a.ctrl.Begin(ctx, a.now(), review.SessionOptions{
			Limit:         limit,
			RequeueLapsed: a.cfg.RequeueLapsed,
		})
		if err != nil {
			return err
		}

		sum, err := runSession(ctx, s, a.ctrl.Scheduler(), a.loc, cmd.InOrStdin(), cmd.OutOrStdout(), a.now)
		printSummary(cmd.OutOrStdout(), sum)
		return err
	},
}

func init() {
	sessionCmd.Flags().Int("limit", 0, "Maximum number of words in the session (default: daily_limit from config, 0 = all)")
}

// runSession drives s from line-based input until the queue is empty, the
// user quits or input ends.
func runSession(ctx context.Context, s *review.Session, sched *spacedrep.Scheduler, loc *time.Location, in io.Reader, out io.Writer, now func() time.Time) (review.Summary, error) {
	scanner := bufio.NewScanner(in)

	if s.Remaining() == 0 {
		fmt.Fprintln(out, "Nothing due. Come back later.")
		return s.Summary(), nil
	}

	for {
		id, st, ok := s.Next()
		if !ok {
			return s.Summary(), nil
		}

		preview := sched.Preview(st, now())
		fmt.Fprintf(out, "\n%s  [%s, %d left]\n", id, st.Phase, s.Remaining())
		fmt.Fprintf(out, "  1) again %s  2) hard %s  3) good %s  4) easy %s  s) skip  q) quit\n",
			days(preview[spacedrep.Again]), days(preview[spacedrep.Hard]),
			days(preview[spacedrep.Good]), days(preview[spacedrep.Easy]))
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return s.Summary(), fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(out)
			return s.Summary(), nil
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))

		switch answer {
		case "":
			continue
		case "q", "quit":
			return s.Summary(), nil
		case "s", "skip":
			s.Skip()
			continue
		}

		sig, err := spacedrep.ParseSignal(answer)
		if err != nil {
			fmt.Fprintf(out, "  %v\n", err)
			continue
		}

		res, err := s.Submit(ctx, sig, now())
		switch {
		case errors.Is(err, review.ErrNotSaved) && ctx.Err() == nil:
			fmt.Fprintf(out, "  Could not save, try again: %v\n", err)
			continue
		case err != nil:
			return s.Summary(), err
		}
		fmt.Fprint(out, "  ")
		printOutcome(out, res, loc)
	}
}

func printSummary(w io.Writer, sum review.Summary) {
	fmt.Fprintf(w, "\nSession %s\n", sum.SessionID[:8])
	fmt.Fprintf(w, "  Reviewed:   %d (again %d, hard %d, good %d, easy %d)\n", sum.Reviewed,
		sum.BySignal[spacedrep.Again], sum.BySignal[spacedrep.Hard],
		sum.BySignal[spacedrep.Good], sum.BySignal[spacedrep.Easy])
	fmt.Fprintf(w, "  New:        %d\n", sum.Totals.Introduced)
	fmt.Fprintf(w, "  Lapsed:     %d\n", sum.Totals.Lapsed)
	fmt.Fprintf(w, "  Matured:    %d\n", sum.Totals.Matured)
	if sum.Skipped > 0 {
		fmt.Fprintf(w, "  Skipped:    %d\n", sum.Skipped)
	}
	if sum.Remaining > 0 {
		fmt.Fprintf(w, "  Remaining:  %d\n", sum.Remaining)
	}
}
