package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/venue-events/internal/venue"
)

func newVenuesCmd() *cobra.Command {
	var (
		city   string
		all    bool
		stats  bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "venues",
		Short: "List configured venues",
		Long: `Lists configured venues.

With --stats, reports recorded scrape history instead: venues where two of
the last three runs failed or found no events are listed as failing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := ParseFormat(format, FormatText, FormatJSON)
			if err != nil {
				return err
			}

			e, err := setup(cmd, stats)
			if err != nil {
				return err
			}

			if stats {
				ctx := cmd.Context()
				store, err := e.openStore(ctx)
				if err != nil {
					return err
				}
				defer e.closeStore(store)

				st, err := e.monitor(store).Stats(ctx)
				if err != nil {
					return fmt.Errorf("loading venue stats: %w", err)
				}
				return WriteVenueStats(cmd.OutOrStdout(), st, out)
			}

			catalog, err := e.catalog()
			if err != nil {
				return err
			}

			defs := catalog.Enabled()
			if all {
				defs = catalog.Venues
			}
			if city != "" {
				defs = venue.ByCity(defs, city)
			}

			return WriteVenues(cmd.OutOrStdout(), defs, out)
		},
	}

	cmd.Flags().StringVar(&city, "city", "", "Only list venues in this city")
	cmd.Flags().BoolVar(&all, "all", false, "Include disabled venues")
	cmd.Flags().BoolVar(&stats, "stats", false, "Show scrape health per venue from recorded runs")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}
