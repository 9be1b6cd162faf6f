// Package cli implements the command-line interface for venue-events.
//
// The cli package provides the Cobra-based CLI: scrape runs venue definitions
// through the pipeline, seed loads hand-maintained event lists, events lists
// stored events (text/JSON/ICS, sorted by date/venue/title), venues lists the
// catalog and serve runs the admin API. Setup failures exit 1; venue failures
// during a scrape are reported in the summary and never change the exit code.
package cli
