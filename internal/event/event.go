package event

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPrice is stored when a listing carries no price information.
const DefaultPrice = "See website for details"

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude" yaml:"longitude"`
}

// Venue is the location embedded on every event. It is hand-authored
// per venue definition and never mutated at runtime.
type Venue struct {
	Name        string      `json:"name" bson:"name" yaml:"name"`
	Address     string      `json:"address,omitempty" bson:"address,omitempty" yaml:"address"`
	City        string      `json:"city" bson:"city" yaml:"city"`
	Region      string      `json:"region,omitempty" bson:"region,omitempty" yaml:"region"`
	Country     string      `json:"country,omitempty" bson:"country,omitempty" yaml:"country"`
	PostalCode  string      `json:"postalCode,omitempty" bson:"postalCode,omitempty" yaml:"postal_code"`
	Coordinates Coordinates `json:"coordinates" bson:"coordinates" yaml:"coordinates"`
}

// Event is a single scraped listing in its persisted shape.
type Event struct {
	ID              string    `json:"id" bson:"id"`
	Title           string    `json:"title" bson:"title"`
	Description     string    `json:"description,omitempty" bson:"description,omitempty"`
	StartDate       time.Time `json:"startDate" bson:"startDate"`
	EndDate         time.Time `json:"endDate" bson:"endDate"`
	Venue           Venue     `json:"venue" bson:"venue"`
	Category        string    `json:"category" bson:"category"`
	Categories      []string  `json:"categories,omitempty" bson:"categories,omitempty"`
	SourceURL       string    `json:"sourceURL" bson:"sourceURL"`
	OfficialWebsite string    `json:"officialWebsite,omitempty" bson:"officialWebsite,omitempty"`
	Image           string    `json:"image,omitempty" bson:"image,omitempty"`
	Price           string    `json:"price,omitempty" bson:"price,omitempty"`
	LastUpdated     time.Time `json:"lastUpdated" bson:"lastUpdated"`
	ScrapedAt       time.Time `json:"scrapedAt" bson:"scrapedAt"`
}

// GenerateID creates a deterministic ID from the venue name, title and start date.
// Re-scraping the same listing always yields the same ID.
func GenerateID(venueName, title string, start time.Time) string {
	h := sha1.New()
	h.Write([]byte(venueName + "|" + strings.TrimSpace(title) + "|" + start.UTC().Format(time.RFC3339)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// RandomID returns a random UUIDv4 for venues that opt out of deterministic IDs.
func RandomID() string {
	return uuid.NewString()
}

// NewEvent creates an Event with a deterministic ID and timestamps populated.
func NewEvent(venue Venue, title string, dates *DateRange, sourceURL string, now time.Time) *Event {
	title = strings.TrimSpace(title)
	return &Event{
		ID:          GenerateID(venue.Name, title, dates.Start),
		Title:       title,
		StartDate:   dates.Start,
		EndDate:     dates.End,
		Venue:       venue,
		SourceURL:   sourceURL,
		Price:       DefaultPrice,
		LastUpdated: now,
		ScrapedAt:   now,
	}
}

// IsPast reports whether the event starts strictly before now.
func (e *Event) IsPast(now time.Time) bool {
	return e.StartDate.Before(now)
}

// IsWithinDays reports whether the event starts between now and now+days.
// Returns true if days <= 0 (feature disabled).
func (e *Event) IsWithinDays(days int, now time.Time) bool {
	if days <= 0 {
		return true
	}
	cutoff := now.AddDate(0, 0, days)
	return !e.StartDate.Before(now) && e.StartDate.Before(cutoff)
}

// BackfillDescription sets a generic description when none was scraped.
func (e *Event) BackfillDescription() {
	if strings.TrimSpace(e.Description) != "" {
		return
	}
	e.Description = fmt.Sprintf("%s at %s.", e.Title, e.Venue.Name)
}
