package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/venue-events/internal/filter"
	"github.com/pfrederiksen/venue-events/internal/storage"
)

type eventsOptions struct {
	cities     []string
	venues     []string
	categories []string
	query      string
	dateRange  string
	from       string
	to         string
	weekends   bool
	past       bool
	limit      int
	sort       string
	format     string
	verbose    bool
}

func newEventsCmd() *cobra.Command {
	opts := &eventsOptions{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List stored events",
		Long: `Lists stored events, upcoming only unless --past is set.

Date ranges accept "Mar 1-15", "March 1 - April 15", "March",
"2026-03-01..2026-03-15" or a single YYYY-MM-DD day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := ParseFormat(opts.format, FormatText, FormatJSON, FormatICS)
			if err != nil {
				return err
			}
			order, err := ParseSortOrder(opts.sort)
			if err != nil {
				return err
			}

			e, err := setup(cmd, true)
			if err != nil {
				return err
			}

			f, err := opts.filter(time.Now())
			if err != nil {
				return err
			}
			f.Location = e.loc

			q := storage.Query{Cities: f.Cities, Venues: f.Venues, Categories: f.Categories}
			if !opts.past {
				q.From = time.Now()
			}

			ctx := cmd.Context()
			store, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer e.closeStore(store)

			events, err := store.List(ctx, q)
			if err != nil {
				return fmt.Errorf("listing events: %w", err)
			}

			events = f.Apply(events)
			sortEvents(events, order)
			if opts.limit > 0 && len(events) > opts.limit {
				events = events[:opts.limit]
			}

			if opts.verbose && out == FormatText {
				fmt.Fprintf(cmd.OutOrStdout(), "Filter: %s\n\n", f)
			}
			return WriteEvents(cmd.OutOrStdout(), events, out, opts.verbose)
		},
	}

	cmd.Flags().StringSliceVar(&opts.cities, "city", nil, "Filter by city (repeatable)")
	cmd.Flags().StringSliceVar(&opts.venues, "venue", nil, "Filter by venue name (repeatable)")
	cmd.Flags().StringSliceVar(&opts.categories, "category", nil, "Filter by category (repeatable)")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Match title or description")
	cmd.Flags().StringVar(&opts.dateRange, "range", "", "Date range, e.g. 'Mar 1-15'")
	cmd.Flags().StringVar(&opts.from, "from", "", "Earliest start day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "Latest start day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.weekends, "weekends", false, "Only Saturday and Sunday events")
	cmd.Flags().BoolVar(&opts.past, "past", false, "Include events that already started")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum number of events (0 for all)")
	cmd.Flags().StringVar(&opts.sort, "sort", "date", "Sort by: date, venue or title")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json or ics")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Show event details")

	return cmd
}

// filter builds the event filter. --range and --from/--to are exclusive.
func (o *eventsOptions) filter(now time.Time) (*filter.Filter, error) {
	f := filter.NewFilter()
	f.Cities = o.cities
	f.Venues = o.venues
	f.Categories = o.categories
	f.Query = strings.TrimSpace(o.query)
	f.WeekendsOnly = o.weekends

	if o.dateRange != "" {
		if o.from != "" || o.to != "" {
			return nil, fmt.Errorf("--range cannot be combined with --from or --to")
		}
		from, to, err := filter.ParseDateRangeAt(o.dateRange, now)
		if err != nil {
			return nil, err
		}
		f.DateFrom, f.DateTo = from, to
		return f, nil
	}

	if o.from != "" {
		from, err := filter.ParseDay(o.from)
		if err != nil {
			return nil, err
		}
		f.DateFrom = &from
	}
	if o.to != "" {
		to, err := filter.ParseDay(o.to)
		if err != nil {
			return nil, err
		}
		to = filter.EndOfDay(to)
		f.DateTo = &to
	}
	return f, nil
}
