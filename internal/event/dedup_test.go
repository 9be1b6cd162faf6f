package event

import (
	"testing"
	"time"
)

func TestCompositeKey(t *testing.T) {
	day := time.Date(2025, time.August, 1, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		titleA string
		startA time.Time
		titleB string
		startB time.Time
		same   bool
	}{
		{"case folded", "Live Jazz Night", day, "live jazz night", day, true},
		{"whitespace collapsed", "Live  Jazz Night ", day, "Live Jazz Night", day, true},
		{"time ignored", "Live Jazz Night", day, "Live Jazz Night", day.Add(2 * time.Hour), true},
		{"different day", "Live Jazz Night", day, "Live Jazz Night", day.AddDate(0, 0, 1), false},
		{"different title", "Live Jazz Night", day, "Live Blues Night", day, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompositeKey(tt.titleA, tt.startA) == CompositeKey(tt.titleB, tt.startB)
			if got != tt.same {
				t.Errorf("keys equal = %v, want %v", got, tt.same)
			}
		})
	}
}

func TestDeduplicate(t *testing.T) {
	day := time.Date(2025, time.August, 1, 20, 0, 0, 0, time.UTC)

	first := &Event{ID: "a", Title: "Live Jazz Night", StartDate: day}
	dup := &Event{ID: "b", Title: "live jazz night", StartDate: day}
	nextDay := &Event{ID: "c", Title: "Live Jazz Night", StartDate: day.AddDate(0, 0, 1)}
	other := &Event{ID: "d", Title: "Farmers Market Opening", StartDate: day}

	got := Deduplicate([]*Event{first, dup, nextDay, other, dup})

	wantIDs := []string{"a", "c", "d"}
	if len(got) != len(wantIDs) {
		t.Fatalf("Deduplicate() returned %d events, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("event[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestDeduplicate_Empty(t *testing.T) {
	if got := Deduplicate(nil); len(got) != 0 {
		t.Errorf("Deduplicate(nil) returned %d events", len(got))
	}
}
