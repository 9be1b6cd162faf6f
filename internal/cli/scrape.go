package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/storage"
	"github.com/pfrederiksen/venue-events/internal/venue"
)

func newScrapeCmd() *cobra.Command {
	var (
		city   string
		dryRun bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "scrape [venue...]",
		Short: "Scrape venues and store new events",
		Long: `Scrapes the named venues (by key or name), or every enabled venue when
none are given. Venue failures are reported but never fail the command.`,
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
			defs, err := catalog.Find(args...)
			if err != nil {
				return err
			}
			if city != "" {
				defs = venue.ByCity(defs, city)
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
			e.log.Info("scrape starting", logger.Fields{"venues": len(defs), "dry_run": dryRun})
			logger.SetGauge("venues.selected", float64(len(defs)))

			results := e.runner(store, dryRun).RunAll(ctx, defs)
			summary := NewRunSummary(results, runAt, dryRun)

			e.log.Info("scrape complete", logger.Fields{
				"venues":   len(results),
				"inserted": summary.Inserted,
				"skipped":  summary.Skipped,
				"failed":   summary.Failed,
			})
			e.log.Debug("metrics", logger.Fields{"snapshot": logger.GetMetricsSnapshot()})

			if err := WriteRunSummary(cmd.OutOrStdout(), summary, out); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&city, "city", "", "Only scrape venues in this city")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Scrape and report without writing to the store")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}
