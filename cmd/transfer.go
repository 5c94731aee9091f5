package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/abhisek/vocab/internal/spacedrep"
	"github.com/abhisek/vocab/internal/transfer"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export all schedules as JSON (to stdout without a file)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		states, err := a.ctrl.Snapshot(cmd.Context())
		if err != nil {
			return err
		}

		if len(args) == 0 {
			return transfer.Export(cmd.OutOrStdout(), states, a.now())
		}
		if err := exportFile(args[0], states, a.now()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d word(s) to %s\n", len(states), args[0])
		return nil
	},
}

// exportFile writes states to path. The file is closed before returning so
// a failed flush is reported.
func exportFile(path string, states map[spacedrep.ItemID]spacedrep.State, now time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := transfer.Export(f, states, now); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	return nil
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import schedules from a JSON export",
	Long: `Import schedules written by "vocab export".

The whole file is validated before anything is written. Existing words are
overwritten unless --skip-existing is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()

		states, err := transfer.Import(f, a.cfg.Scheduler.MinEase)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		skip, _ := cmd.Flags().GetBool("skip-existing")
		var existing map[spacedrep.ItemID]spacedrep.State
		if skip {
			existing, err = a.ctrl.Snapshot(ctx)
			if err != nil {
				return err
			}
		}

		imported, skipped := 0, 0
		for id, st := range states {
			if _, ok := existing[id]; ok {
				skipped++
				continue
			}
			if err := a.ctrl.Restore(ctx, id, st); err != nil {
				return fmt.Errorf("imported %d before failing: %w", imported, err)
			}
			imported++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d word(s), skipped %d.\n", imported, skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("skip-existing", false, "Keep words that already have a schedule")
}
