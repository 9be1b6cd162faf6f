package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pfrederiksen/venue-events/internal/event"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, "file://"+dir, "")
	if err != nil {
		t.Fatalf("Open(file) error: %v", err)
	}
	fs, ok := s.(*FileStore)
	if !ok {
		t.Fatalf("Open(file) = %T, want *FileStore", s)
	}
	if fs.Path() != filepath.Join(dir, "events.json") {
		t.Errorf("Path() = %q", fs.Path())
	}

	for _, uri := range []string{"postgres://localhost/db", "events.db", "http://example.com"} {
		if _, err := Open(ctx, uri, ""); !errors.Is(err, ErrUnsupportedURI) {
			t.Errorf("Open(%q) error = %v, want ErrUnsupportedURI", uri, err)
		}
	}
}

func TestQuery_Matches(t *testing.T) {
	start := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)
	evt := &event.Event{
		Title:      "Harvest Market",
		StartDate:  start,
		Venue:      event.Venue{Name: "Harbourfront Centre", City: "Toronto"},
		Category:   "Market",
		Categories: []string{"Market", "Outdoor"},
	}

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"empty", Query{}, true},
		{"from inclusive", Query{From: start}, true},
		{"from after", Query{From: start.Add(time.Minute)}, false},
		{"to inclusive", Query{To: start}, true},
		{"to before", Query{To: start.Add(-time.Minute)}, false},
		{"city case-insensitive", Query{Cities: []string{"TORONTO"}}, true},
		{"other city", Query{Cities: []string{"Calgary"}}, false},
		{"one of several cities", Query{Cities: []string{"Calgary", "toronto"}}, true},
		{"venue", Query{Venues: []string{"harbourfront centre"}}, true},
		{"venue substring", Query{Venues: []string{"harbour"}}, true},
		{"secondary category", Query{Categories: []string{"outdoor"}}, true},
		{"missing category", Query{Categories: []string{"Comedy"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(evt); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpdate_EmptyAndApply(t *testing.T) {
	if !(Update{}).Empty() {
		t.Error("zero Update should be empty")
	}
	img := "https://example.com/a.jpg"
	u := Update{Image: &img}
	if u.Empty() {
		t.Error("Update with image should not be empty")
	}

	evt := &event.Event{Title: "Keep Me", Image: ""}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u.Apply(evt, now)
	if evt.Image != img || evt.Title != "Keep Me" || !evt.LastUpdated.Equal(now) {
		t.Errorf("Apply() = %+v", evt)
	}
}

func TestExistsFilter(t *testing.T) {
	start := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)
	f := existsFilter("abc123", "Live Jazz Night", start)

	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("$or = %#v", f["$or"])
	}
	if id := or[0].(bson.M)["id"]; id != "abc123" {
		t.Errorf("id clause = %v", id)
	}
	pair := or[1].(bson.M)
	if pair["title"] != "Live Jazz Night" || pair["startDate"] != start {
		t.Errorf("title/startDate clause = %v", pair)
	}
}

func TestListFilter(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	f := listFilter(Query{From: from, Cities: []string{"St. John's"}, Categories: []string{"Music", "Jazz"}})

	dates, ok := f["startDate"].(bson.M)
	if !ok || dates["$gte"] != from {
		t.Errorf("startDate = %#v", f["startDate"])
	}
	if _, ok := dates["$lte"]; ok {
		t.Error("unexpected $lte without To")
	}

	cities := f["venue.city"].(bson.M)["$in"].(bson.A)
	if len(cities) != 1 || cities[0] != (primitive.Regex{Pattern: `St\. John's`, Options: "i"}) {
		t.Errorf("venue.city = %#v", cities)
	}
	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("category $or = %#v", f["$or"])
	}
	categories := or[0].(bson.M)["category"].(bson.M)["$in"].(bson.A)
	if len(categories) != 2 || categories[0] != (primitive.Regex{Pattern: "^Music$", Options: "i"}) {
		t.Errorf("category = %#v", categories)
	}
	if _, ok := f["venue.name"]; ok {
		t.Error("unexpected venue.name clause")
	}

	if len(listFilter(Query{})) != 0 {
		t.Error("empty query should produce empty filter")
	}
}

func TestUpdateFields(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	title := " New Title "
	set := updateFields(Update{Title: &title}, now)

	if set["title"] != "New Title" {
		t.Errorf("title = %v", set["title"])
	}
	if set["lastUpdated"] != now {
		t.Errorf("lastUpdated = %v", set["lastUpdated"])
	}
	for _, k := range []string{"description", "category", "image"} {
		if _, ok := set[k]; ok {
			t.Errorf("unexpected field %q", k)
		}
	}
}

func TestIndexModels(t *testing.T) {
	models := indexModels()
	if len(models) != 3 {
		t.Fatalf("expected 3 indexes, got %d", len(models))
	}
	if models[0].Options == nil || models[0].Options.Unique == nil || !*models[0].Options.Unique {
		t.Error("id index must be unique")
	}
}

func TestFeaturedIndexModels(t *testing.T) {
	models := featuredIndexModels()
	if models[0].Options == nil || models[0].Options.Unique == nil || !*models[0].Options.Unique {
		t.Error("featured eventId index must be unique")
	}
}

func TestVenueRun_Success(t *testing.T) {
	tests := []struct {
		run  VenueRun
		want bool
	}{
		{VenueRun{Events: 3}, true},
		{VenueRun{Events: 0}, false},
		{VenueRun{Events: 3, Error: "fetching: timeout"}, false},
	}
	for _, tt := range tests {
		if got := tt.run.Success(); got != tt.want {
			t.Errorf("%+v.Success() = %v, want %v", tt.run, got, tt.want)
		}
	}
}
