package event

import (
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	start := time.Date(2025, time.July, 15, 20, 0, 0, 0, time.UTC)

	id1 := GenerateID("Wild Rose Brewery", "Live Jazz Night", start)
	id2 := GenerateID("Wild Rose Brewery", "Live Jazz Night", start)

	if id1 != id2 {
		t.Errorf("GenerateID should be deterministic, got different IDs: %s vs %s", id1, id2)
	}

	if len(id1) != 40 { // SHA1 produces 40 hex characters
		t.Errorf("expected ID length of 40, got %d", len(id1))
	}

	tests := []struct {
		name  string
		venue string
		title string
		start time.Time
	}{
		{"different venue", "Palomino", "Live Jazz Night", start},
		{"different title", "Wild Rose Brewery", "Trivia Night", start},
		{"different start", "Wild Rose Brewery", "Live Jazz Night", start.Add(time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateID(tt.venue, tt.title, tt.start); got == id1 {
				t.Errorf("GenerateID(%q, %q, %v) collided with base ID", tt.venue, tt.title, tt.start)
			}
		})
	}
}

func TestGenerateID_ZoneIndependent(t *testing.T) {
	utcStart := time.Date(2025, time.July, 16, 2, 0, 0, 0, time.UTC)
	local := utcStart.In(time.FixedZone("MDT", -6*3600))

	if GenerateID("Venue", "Title", utcStart) != GenerateID("Venue", "Title", local) {
		t.Error("GenerateID should not depend on the time zone of the same instant")
	}
}

func TestRandomID(t *testing.T) {
	a, b := RandomID(), RandomID()
	if a == b {
		t.Error("RandomID returned the same value twice")
	}
	if len(a) != 36 {
		t.Errorf("RandomID length = %d, want 36", len(a))
	}
}

func TestNewEvent(t *testing.T) {
	now := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	dates := &DateRange{
		Start: time.Date(2025, time.July, 15, 20, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.July, 15, 23, 0, 0, 0, time.UTC),
	}
	venue := Venue{Name: "Wild Rose Brewery", City: "Calgary"}

	evt := NewEvent(venue, "  Live Jazz Night ", dates, "https://example.com/events", now)

	if evt.ID != GenerateID("Wild Rose Brewery", "Live Jazz Night", dates.Start) {
		t.Errorf("unexpected ID %q", evt.ID)
	}
	if evt.Title != "Live Jazz Night" {
		t.Errorf("expected title to be trimmed, got %q", evt.Title)
	}
	if !evt.StartDate.Equal(dates.Start) || !evt.EndDate.Equal(dates.End) {
		t.Errorf("dates not copied: %v - %v", evt.StartDate, evt.EndDate)
	}
	if evt.Venue.City != "Calgary" {
		t.Errorf("expected venue city Calgary, got %q", evt.Venue.City)
	}
	if evt.Price != DefaultPrice {
		t.Errorf("expected default price, got %q", evt.Price)
	}
	if !evt.ScrapedAt.Equal(now) || !evt.LastUpdated.Equal(now) {
		t.Error("expected ScrapedAt and LastUpdated to be set to now")
	}
}

func TestEvent_IsPast(t *testing.T) {
	now := time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		want  bool
	}{
		{"yesterday", now.AddDate(0, 0, -1), true},
		{"one second ago", now.Add(-time.Second), true},
		{"exactly now", now, false},
		{"tomorrow", now.AddDate(0, 0, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := &Event{StartDate: tt.start}
			if got := evt.IsPast(now); got != tt.want {
				t.Errorf("IsPast() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvent_IsWithinDays(t *testing.T) {
	now := time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		days  int
		want  bool
	}{
		{"tomorrow within 30", now.AddDate(0, 0, 1), 30, true},
		{"next week within 30", now.AddDate(0, 0, 7), 30, true},
		{"beyond 30 days", now.AddDate(0, 0, 35), 30, false},
		{"past event", now.AddDate(0, 0, -1), 30, false},
		{"feature disabled", now.AddDate(0, 0, 35), 0, true},
		{"feature disabled negative", now.AddDate(0, 0, 35), -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := &Event{StartDate: tt.start}
			if got := evt.IsWithinDays(tt.days, now); got != tt.want {
				t.Errorf("IsWithinDays(%d) = %v, want %v", tt.days, got, tt.want)
			}
		})
	}
}

func TestEvent_BackfillDescription(t *testing.T) {
	evt := &Event{Title: "Trivia Night", Venue: Venue{Name: "Ship & Anchor"}}
	evt.BackfillDescription()
	if evt.Description != "Trivia Night at Ship & Anchor." {
		t.Errorf("Description = %q", evt.Description)
	}

	evt = &Event{Title: "Trivia Night", Description: "Bring a team.", Venue: Venue{Name: "Ship & Anchor"}}
	evt.BackfillDescription()
	if evt.Description != "Bring a team." {
		t.Errorf("existing description overwritten: %q", evt.Description)
	}
}
