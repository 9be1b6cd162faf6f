package event

import (
	"strings"
	"time"
)

// CompositeKey identifies an event by case-folded title and calendar day.
// Two listings with the same key are the same event regardless of show time.
func CompositeKey(title string, start time.Time) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(title), " "))
	return normalized + "|" + start.Format("2006-01-02")
}

// Key returns the event's composite key.
func (e *Event) Key() string {
	return CompositeKey(e.Title, e.StartDate)
}

// Deduplicate returns events with no two sharing a composite key.
// The first occurrence wins; later duplicates are dropped, not merged.
func Deduplicate(events []*Event) []*Event {
	seen := make(map[string]bool, len(events))
	unique := make([]*Event, 0, len(events))
	for _, evt := range events {
		key := evt.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, evt)
	}
	return unique
}
