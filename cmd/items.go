package cmd

import (
	"errors"
	"fmt"

	"github.com/abhisek/vocab/internal/review"
	"github.com/abhisek/vocab/internal/spacedrep"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <word>...",
	Short: "Add words to the learning set",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		now := a.now()
		added := 0
		for _, arg := range args {
			_, err := a.ctrl.Enroll(cmd.Context(), spacedrep.ItemID(arg), now)
			switch {
			case errors.Is(err, review.ErrAlreadyExists):
				fmt.Fprintf(cmd.OutOrStdout(), "%s: already added\n", arg)
			case err != nil:
				return err
			default:
				added++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d word(s).\n", added)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <word>",
	Short: "Remove a word and its schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if err := a.ctrl.Remove(ctx, spacedrep.ItemID(args[0])); err != nil {
			return err
		}
		if a.prune != nil {
			if err := a.prune(ctx); err != nil {
				a.log.Warn("pruning review log failed", "error", err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", args[0])
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <word>",
	Short: "Forget a word's progress and start it over as new",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		id := spacedrep.ItemID(args[0])
		if _, err := a.ctrl.State(ctx, id); err != nil {
			return err
		}
		if err := a.ctrl.Restore(ctx, id, a.ctrl.Scheduler().NewState(a.now())); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %s. It is due now.\n", args[0])
		return nil
	},
}
