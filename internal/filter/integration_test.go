package filter_test

import (
	"testing"
	"time"

	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/filter"
)

// TestIntegration demonstrates the full filter workflow
func TestIntegration(t *testing.T) {
	calgary := event.Venue{Name: "Wild Rose Brewery", City: "Calgary"}
	toronto := event.Venue{Name: "Harbourfront Centre", City: "Toronto"}

	events := []*event.Event{
		{ID: "1", Title: "Patio Jazz", Venue: calgary, Category: "Music",
			StartDate: time.Date(2026, 3, 15, 20, 0, 0, 0, time.UTC)}, // Sunday
		{ID: "2", Title: "Night Market", Venue: toronto, Category: "Market",
			StartDate: time.Date(2026, 3, 22, 17, 0, 0, 0, time.UTC)}, // Sunday
		{ID: "3", Title: "Spring Comedy Showcase", Venue: calgary, Category: "Comedy",
			StartDate: time.Date(2026, 4, 5, 19, 0, 0, 0, time.UTC)},
		{ID: "4", Title: "Trivia Tuesday", Venue: calgary, Category: "Trivia",
			StartDate: time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)},
	}

	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Filter by date range", func(t *testing.T) {
		from, to, err := filter.ParseDateRangeAt("March 1-20", now)
		if err != nil {
			t.Fatalf("ParseDateRange failed: %v", err)
		}

		f := filter.NewFilter()
		f.DateFrom = from
		f.DateTo = to

		results := f.Apply(events)
		if len(results) != 2 {
			t.Fatalf("Expected 2 results, got %d", len(results))
		}
		if results[0].ID != "1" || results[1].ID != "4" {
			t.Errorf("unexpected results: %s, %s", results[0].ID, results[1].ID)
		}
	})

	t.Run("Filter by city and weekends", func(t *testing.T) {
		f := filter.NewFilter()
		f.Cities = []string{"calgary"}
		f.WeekendsOnly = true

		results := f.Apply(events)
		if len(results) != 2 {
			t.Fatalf("Expected 2 results, got %d", len(results))
		}
		for _, r := range results {
			if r.Venue.City != "Calgary" {
				t.Errorf("unexpected city %s", r.Venue.City)
			}
		}
	})

	t.Run("Filter by category", func(t *testing.T) {
		f := filter.NewFilter()
		f.Categories = []string{"market"}

		results := f.Apply(events)
		if len(results) != 1 || results[0].ID != "2" {
			t.Errorf("Expected the market event, got %v", results)
		}
	})

	t.Run("Clone keeps filters independent", func(t *testing.T) {
		f := filter.NewFilter()
		f.Venues = []string{"Harbourfront"}

		clone := f.Clone()
		clone.Venues = append(clone.Venues, "Wild Rose")

		if len(f.Apply(events)) != 1 {
			t.Error("original filter changed after clone modification")
		}
		if len(clone.Apply(events)) != 4 {
			t.Error("clone should match both venues")
		}
	})
}
