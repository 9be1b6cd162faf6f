package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/pipeline"
	"github.com/pfrederiksen/venue-events/internal/storage"
)

func newSeedCmd() *cobra.Command {
	var (
		dryRun bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Load a hand-maintained event list into the store",
		Long: `Loads a YAML list of events for venues whose listings cannot be scraped.
Entries go through the same date, category and duplicate handling as scraped
events. Each entry names its venue by key or name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := ParseFormat(format, FormatText, FormatJSON)
			if err != nil {
				return err
			}

			e, err := setup(cmd, !dryRun)
			if err != nil {
				return err
			}

			catalog, err := e.catalog()
			if err != nil {
				return err
			}
			file, err := pipeline.LoadSeed(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			var store storage.Store
			if !dryRun {
				store, err = e.openStore(ctx)
				if err != nil {
					return err
				}
				defer e.closeStore(store)
			}

			runAt := time.Now().UTC()
			e.log.Info("seed starting", logger.Fields{"file": args[0], "entries": len(file.Events)})

			results := e.runner(store, dryRun).Seed(ctx, catalog, file)
			summary := NewRunSummary(results, runAt, dryRun)

			if err := WriteRunSummary(cmd.OutOrStdout(), summary, out); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and report without writing to the store")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}
