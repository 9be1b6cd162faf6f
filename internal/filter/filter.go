// Package filter narrows stored events for the CLI listing and the admin API.
//
// Filters combine any of the following criteria; every active criterion must
// hold for an event to match:
//   - Date ranges (from/to dates, inclusive)
//   - Venue names (substring matching, case-insensitive)
//   - Cities (substring matching, case-insensitive)
//   - Categories (primary or secondary label, case-insensitive)
//   - Free-text query over title and description
//   - Weekends only (Saturday/Sunday in the filter's location)
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.WeekendsOnly = true
//	f.Cities = []string{"Calgary"}
//
//	filtered := f.Apply(events)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/venue-events/internal/event"
)

// Filter represents event filtering criteria
type Filter struct {
	// Date range filtering on the event start
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Venue name filtering (case-insensitive substring match)
	Venues []string `json:"venues,omitempty"`

	// City filtering (case-insensitive substring match)
	Cities []string `json:"cities,omitempty"`

	// Category filtering (case-insensitive exact label match)
	Categories []string `json:"categories,omitempty"`

	// Query matches title or description (case-insensitive substring match)
	Query string `json:"query,omitempty"`

	// Weekend-only filtering (Saturday/Sunday)
	WeekendsOnly bool `json:"weekends_only,omitempty"`

	// Location used to decide the weekday of an event. UTC when nil.
	Location *time.Location `json:"-"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all events until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Venues:     []string{},
		Cities:     []string{},
		Categories: []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
// Returns true if the filter would match all events.
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Venues) == 0 &&
		len(f.Cities) == 0 &&
		len(f.Categories) == 0 &&
		strings.TrimSpace(f.Query) == "" &&
		!f.WeekendsOnly
}

// Matches checks if an event matches all active filter criteria.
// An empty filter matches all events.
//
// Matching logic:
//   - Date range: StartDate must be within DateFrom and DateTo (inclusive)
//   - Venues: venue name must contain at least one entry
//   - Cities: venue city must contain at least one entry
//   - Categories: primary category or any secondary label must equal an entry
//   - Query: title or description must contain the query
//   - WeekendsOnly: StartDate must fall on Saturday or Sunday
func (f *Filter) Matches(evt *event.Event) bool {
	if f.IsEmpty() {
		return true
	}

	if f.DateFrom != nil && evt.StartDate.Before(*f.DateFrom) {
		return false
	}

	if f.DateTo != nil && evt.StartDate.After(*f.DateTo) {
		return false
	}

	if f.WeekendsOnly {
		loc := f.Location
		if loc == nil {
			loc = time.UTC
		}
		weekday := evt.StartDate.In(loc).Weekday()
		if weekday != time.Saturday && weekday != time.Sunday {
			return false
		}
	}

	if len(f.Venues) > 0 && !containsAny(evt.Venue.Name, f.Venues) {
		return false
	}

	if len(f.Cities) > 0 && !containsAny(evt.Venue.City, f.Cities) {
		return false
	}

	if len(f.Categories) > 0 && !hasCategory(evt, f.Categories) {
		return false
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(evt.Title), q) &&
			!strings.Contains(strings.ToLower(evt.Description), q) {
			return false
		}
	}

	return true
}

// Apply applies the filter to a list of events and returns only matching events.
// If the filter is empty, returns the original list unchanged.
func (f *Filter) Apply(events []*event.Event) []*event.Event {
	if f.IsEmpty() {
		return events
	}

	var filtered []*event.Event
	for _, evt := range events {
		if f.Matches(evt) {
			filtered = append(filtered, evt)
		}
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Returns "No active filters" if the filter is empty.
// Format: "From: Jan 2, 2026 | To: Jan 15, 2026 | Cities: Calgary | Weekends only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}

	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}

	if len(f.Venues) > 0 {
		parts = append(parts, fmt.Sprintf("Venues: %s", strings.Join(f.Venues, ", ")))
	}

	if len(f.Cities) > 0 {
		parts = append(parts, fmt.Sprintf("Cities: %s", strings.Join(f.Cities, ", ")))
	}

	if len(f.Categories) > 0 {
		parts = append(parts, fmt.Sprintf("Categories: %s", strings.Join(f.Categories, ", ")))
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, fmt.Sprintf("Query: %q", q))
	}

	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter.
func (f *Filter) Clone() *Filter {
	clone := &Filter{
		Query:        f.Query,
		WeekendsOnly: f.WeekendsOnly,
		Location:     f.Location,
		Venues:       cloneStrings(f.Venues),
		Cities:       cloneStrings(f.Cities),
		Categories:   cloneStrings(f.Categories),
	}

	if f.DateFrom != nil {
		df := *f.DateFrom
		clone.DateFrom = &df
	}

	if f.DateTo != nil {
		dt := *f.DateTo
		clone.DateTo = &dt
	}

	return clone
}

func containsAny(value string, needles []string) bool {
	lower := strings.ToLower(value)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(strings.TrimSpace(n))) {
			return true
		}
	}
	return false
}

func hasCategory(evt *event.Event, wanted []string) bool {
	for _, w := range wanted {
		w = strings.TrimSpace(w)
		if strings.EqualFold(evt.Category, w) {
			return true
		}
		for _, c := range evt.Categories {
			if strings.EqualFold(c, w) {
				return true
			}
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
