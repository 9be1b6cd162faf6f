package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pfrederiksen/venue-events/internal/calendar"
	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/monitor"
	"github.com/pfrederiksen/venue-events/internal/pipeline"
	"github.com/pfrederiksen/venue-events/internal/venue"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// ParseFormat validates a --format value against the allowed formats.
func ParseFormat(s string, allowed ...OutputFormat) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	names := make([]string, len(allowed))
	for i, a := range allowed {
		if format == a {
			return format, nil
		}
		names[i] = "'" + string(a) + "'"
	}
	return "", fmt.Errorf("invalid format: %s (must be %s)", s, strings.Join(names, " or "))
}

// RunSummary is the JSON shape of a scrape or seed run.
type RunSummary struct {
	RunAt    time.Time      `json:"run_at"`
	DryRun   bool           `json:"dry_run,omitempty"`
	Venues   []VenueRun     `json:"venues"`
	Inserted int            `json:"inserted"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed_venues"`
	Events   []*event.Event `json:"events,omitempty"`
}

// VenueRun is one venue's line in a RunSummary.
type VenueRun struct {
	Venue       string `json:"venue"`
	Selector    string `json:"selector,omitempty"`
	Candidates  int    `json:"candidates"`
	Rejected    int    `json:"rejected"`
	Unparseable int    `json:"unparseable"`
	Past        int    `json:"past"`
	Duplicates  int    `json:"duplicates"`
	Inserted    int    `json:"inserted"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// NewRunSummary aggregates pipeline results. Events are included only for
// dry runs, where they are otherwise invisible.
func NewRunSummary(results []*pipeline.Result, runAt time.Time, dryRun bool) *RunSummary {
	s := &RunSummary{RunAt: runAt, DryRun: dryRun, Venues: make([]VenueRun, 0, len(results))}
	for _, r := range results {
		v := VenueRun{
			Venue:       r.Venue,
			Selector:    r.Selector,
			Candidates:  r.Candidates,
			Rejected:    r.Rejected,
			Unparseable: r.Unparseable,
			Past:        r.Past,
			Duplicates:  r.Duplicates,
			Inserted:    r.Inserted,
			Skipped:     r.Skipped,
			Failed:      r.Failed,
			DurationMS:  r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			v.Error = r.Err.Error()
			s.Failed++
		}
		s.Inserted += r.Inserted
		s.Skipped += r.Skipped
		if dryRun {
			s.Events = append(s.Events, r.Events...)
		}
		s.Venues = append(s.Venues, v)
	}
	return s
}

// WriteRunSummary writes a run summary in the specified format
func WriteRunSummary(w io.Writer, s *RunSummary, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatText:
		return writeRunText(w, s)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeRunText(w io.Writer, s *RunSummary) error {
	if len(s.Venues) == 0 {
		fmt.Fprintln(w, "No venues matched.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VENUE\tFOUND\tREJECTED\tUNPARSEABLE\tPAST\tDUPES\tINSERTED\tSKIPPED\tSTATUS")
	for _, v := range s.Venues {
		status := "ok"
		if v.Error != "" {
			status = "error: " + v.Error
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			v.Venue, v.Candidates, v.Rejected, v.Unparseable, v.Past, v.Duplicates, v.Inserted, v.Skipped, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if s.DryRun {
		fmt.Fprintf(w, "\nDry run: %d events would be written\n", len(s.Events))
		for _, evt := range s.Events {
			fmt.Fprintf(w, "  %s  %s @ %s\n", evt.StartDate.Format("2006-01-02 15:04"), evt.Title, evt.Venue.Name)
		}
		return nil
	}

	fmt.Fprintf(w, "\nTotal: %d inserted, %d skipped across %d venues", s.Inserted, s.Skipped, len(s.Venues))
	if s.Failed > 0 {
		fmt.Fprintf(w, " (%d failed)", s.Failed)
	}
	fmt.Fprintln(w)
	return nil
}

// WriteEvents writes stored events in the specified format
func WriteEvents(w io.Writer, events []*event.Event, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		if events == nil {
			events = []*event.Event{}
		}
		return writeJSON(w, events)
	case FormatICS:
		_, err := io.WriteString(w, calendar.GenerateBulkICS(events, "Venue Events"))
		return err
	case FormatText:
		return writeEventsText(w, events, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeEventsText(w io.Writer, events []*event.Event, verbose bool) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	for _, evt := range events {
		fmt.Fprintf(w, "%s  %s @ %s (%s)\n",
			evt.StartDate.Format("Mon Jan 2 2006 15:04"), evt.Title, evt.Venue.Name, evt.Category)
		if verbose {
			fmt.Fprintf(w, "     ID: %s\n", evt.ID)
			fmt.Fprintf(w, "     Ends: %s\n", evt.EndDate.Format("Mon Jan 2 2006 15:04"))
			if evt.Venue.City != "" {
				fmt.Fprintf(w, "     City: %s\n", evt.Venue.City)
			}
			if evt.OfficialWebsite != "" {
				fmt.Fprintf(w, "     URL: %s\n", evt.OfficialWebsite)
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d events\n", len(events))
	return nil
}

// WriteVenues writes venue definitions in the specified format
func WriteVenues(w io.Writer, defs []*venue.Definition, format OutputFormat) error {
	switch format {
	case FormatJSON:
		type venueLine struct {
			Key      string `json:"key"`
			Name     string `json:"name"`
			City     string `json:"city"`
			Fetch    string `json:"fetch"`
			URL      string `json:"url"`
			Disabled bool   `json:"disabled,omitempty"`
		}
		lines := make([]venueLine, 0, len(defs))
		for _, d := range defs {
			lines = append(lines, venueLine{d.Key, d.Name, d.City(), string(d.FetchMode()), d.URL, d.Disabled})
		}
		return writeJSON(w, lines)
	case FormatText:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tNAME\tCITY\tFETCH\tURL")
		for _, d := range defs {
			name := d.Name
			if d.Disabled {
				name += " (disabled)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Key, name, d.City(), d.FetchMode(), d.URL)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteVenueStats writes recorded venue health in the specified format
func WriteVenueStats(w io.Writer, s *monitor.Stats, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatText:
		if s.TotalVenues == 0 {
			fmt.Fprintln(w, "No recorded runs.")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "VENUE\tSTATUS\tLAST RUN\tEVENTS\tRECENT FAILURES\tSTREAK\tLAST ERROR")
		writeRows := func(rows []monitor.VenueHealth, status string) {
			for _, h := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					h.Venue, status, h.LastRun.Local().Format("Jan 2 15:04"), h.LastEvents,
					h.RecentFailures, h.ConsecutiveFailures, h.LastError)
			}
		}
		writeRows(s.Failing, "FAILING")
		writeRows(s.Healthy, "ok")
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%d venues, %d runs, %d failing\n", s.TotalVenues, s.TotalRuns, len(s.Failing))
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
