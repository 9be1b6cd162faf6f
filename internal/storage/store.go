package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/venue-events/internal/event"
)

var (
	// ErrNotFound is returned when no event has the requested id.
	ErrNotFound = errors.New("event not found")
	// ErrDuplicate is returned by Insert when the id or (title, startDate)
	// pair is already stored.
	ErrDuplicate = errors.New("event already exists")
	// ErrUnsupportedURI is returned by Open for unknown URI schemes.
	ErrUnsupportedURI = errors.New("unsupported store URI")
	// ErrAlreadyFeatured is returned by AddFeatured for an event already on
	// the featured list.
	ErrAlreadyFeatured = errors.New("event is already featured")
	// ErrNotFeatured is returned by RemoveFeatured for an event not on the list.
	ErrNotFeatured = errors.New("event is not featured")
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "discovr"

// Store is the event persistence contract.
type Store interface {
	// Exists reports whether an event matches id, or title and start.
	Exists(ctx context.Context, id, title string, start time.Time) (bool, error)
	Insert(ctx context.Context, evt *event.Event) error
	Get(ctx context.Context, id string) (*event.Event, error)
	List(ctx context.Context, q Query) ([]*event.Event, error)
	Update(ctx context.Context, id string, u Update) (*event.Event, error)
	DeleteMany(ctx context.Context, ids []string) (int, error)

	// ListFeatured returns the featured list ordered by position.
	ListFeatured(ctx context.Context) ([]Featured, error)
	// AddFeatured appends eventID to the end of the featured list.
	AddFeatured(ctx context.Context, eventID string) (Featured, error)
	// RemoveFeatured drops eventID and renumbers the rest from zero.
	RemoveFeatured(ctx context.Context, eventID string) error

	// RecordRun appends run to its venue's history, keeping only the newest
	// keep runs for that venue. keep <= 0 keeps everything.
	RecordRun(ctx context.Context, run VenueRun, keep int) error
	// Runs returns run history oldest first, grouped by venue. An empty venue
	// returns every venue.
	Runs(ctx context.Context, venue string) ([]VenueRun, error)

	Close(ctx context.Context) error
}

// Featured is one position on the curated featured-events list.
type Featured struct {
	EventID string    `json:"eventId" bson:"eventId"`
	Order   int       `json:"order" bson:"order"`
	AddedAt time.Time `json:"addedAt" bson:"addedAt"`
}

// VenueRun is the outcome of one scrape of a venue.
type VenueRun struct {
	Venue      string    `json:"venue" bson:"venue"`
	At         time.Time `json:"at" bson:"at"`
	Events     int       `json:"events" bson:"events"`
	DurationMS int64     `json:"durationMs" bson:"durationMs"`
	Error      string    `json:"error,omitempty" bson:"error,omitempty"`
	// Alerted marks the run that raised a zero-event alert.
	Alerted bool `json:"alerted,omitempty" bson:"alerted,omitempty"`
}

// Success reports whether the run completed and found at least one event.
func (r VenueRun) Success() bool {
	return r.Error == "" && r.Events > 0
}

func sortRuns(runs []VenueRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Venue != runs[j].Venue {
			return runs[i].Venue < runs[j].Venue
		}
		return runs[i].At.Before(runs[j].At)
	})
}

// Query narrows List. Zero fields match everything. Results are ordered by
// start date.
//
// Cities and Venues match case-insensitive substrings; Categories match the
// primary or any secondary category exactly, ignoring case. Within a field any
// value may match.
type Query struct {
	From       time.Time
	To         time.Time
	Cities     []string
	Venues     []string
	Categories []string
	Limit      int
}

// Matches reports whether evt satisfies the query.
func (q Query) Matches(evt *event.Event) bool {
	if !q.From.IsZero() && evt.StartDate.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && evt.StartDate.After(q.To) {
		return false
	}
	if len(q.Cities) > 0 && !containsAny(evt.Venue.City, q.Cities) {
		return false
	}
	if len(q.Venues) > 0 && !containsAny(evt.Venue.Name, q.Venues) {
		return false
	}
	if len(q.Categories) > 0 && !hasCategory(evt, q.Categories) {
		return false
	}
	return true
}

func containsAny(value string, needles []string) bool {
	value = strings.ToLower(value)
	for _, n := range needles {
		if strings.Contains(value, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func hasCategory(evt *event.Event, wanted []string) bool {
	for _, w := range wanted {
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

// Update is an administrative edit. Nil fields are left unchanged.
type Update struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Image       *string `json:"image,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil && u.Image == nil
}

// Apply writes the non-nil fields onto evt.
func (u Update) Apply(evt *event.Event, now time.Time) {
	if u.Title != nil {
		evt.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		evt.Description = *u.Description
	}
	if u.Category != nil {
		evt.Category = *u.Category
	}
	if u.Image != nil {
		evt.Image = *u.Image
	}
	evt.LastUpdated = now
}

// Open selects a Store by URI scheme.
func Open(ctx context.Context, uri, database string) (Store, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parsing store URI: %w", err)
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		if database == "" {
			database = DefaultDatabase
		}
		return NewMongo(ctx, uri, database)
	case "file":
		dir := u.Path
		if u.Host != "" {
			// file://~/data or file://relative/dir
			dir = u.Host + u.Path
		}
		return NewFile(dir)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURI, u.Scheme)
	}
}
