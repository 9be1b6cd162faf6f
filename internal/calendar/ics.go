// Package calendar renders stored events as iCalendar (RFC 5545) feeds.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/venue-events/internal/event"
)

const (
	prodID    = "-//Venue Events//venue-events//EN"
	uidDomain = "venue-events"
	// maxLineOctets is the RFC 5545 content line limit, excluding CRLF.
	maxLineOctets = 75
)

// GenerateICS generates an iCalendar (.ics) file for an event
func GenerateICS(evt *event.Event) string {
	return generate([]*event.Event{evt}, "", time.Now().UTC())
}

// GenerateBulkICS generates one iCalendar file holding every event.
// The calendar is named with X-WR-CALNAME when name is non-empty.
// Returns an empty string when there are no events.
func GenerateBulkICS(events []*event.Event, name string) string {
	if len(events) == 0 {
		return ""
	}
	return generate(events, name, time.Now().UTC())
}

func generate(events []*event.Event, name string, stamp time.Time) string {
	var ics strings.Builder

	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:"+prodID)
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")
	if name != "" {
		writeLine(&ics, "X-WR-CALNAME:"+escapeICS(name))
	}

	for _, evt := range events {
		writeEvent(&ics, evt, stamp)
	}

	writeLine(&ics, "END:VCALENDAR")
	return ics.String()
}

func writeEvent(ics *strings.Builder, evt *event.Event, stamp time.Time) {
	writeLine(ics, "BEGIN:VEVENT")
	writeLine(ics, fmt.Sprintf("UID:%s@%s", evt.ID, uidDomain))
	writeLine(ics, "DTSTAMP:"+formatICSTime(stamp))
	writeLine(ics, "DTSTART:"+formatICSTime(evt.StartDate))

	end := evt.EndDate
	if end.Before(evt.StartDate) {
		end = evt.StartDate
	}
	writeLine(ics, "DTEND:"+formatICSTime(end))

	writeLine(ics, "SUMMARY:"+escapeICS(evt.Title))

	if desc := strings.TrimSpace(evt.Description); desc != "" {
		writeLine(ics, "DESCRIPTION:"+escapeICS(desc))
	}

	if loc := location(evt.Venue); loc != "" {
		writeLine(ics, "LOCATION:"+escapeICS(loc))
	}

	if c := evt.Venue.Coordinates; c.Latitude != 0 || c.Longitude != 0 {
		writeLine(ics, fmt.Sprintf("GEO:%.6f;%.6f", c.Latitude, c.Longitude))
	}

	if len(evt.Categories) > 0 {
		cats := make([]string, len(evt.Categories))
		for i, c := range evt.Categories {
			cats[i] = escapeICS(c)
		}
		writeLine(ics, "CATEGORIES:"+strings.Join(cats, ","))
	} else if evt.Category != "" {
		writeLine(ics, "CATEGORIES:"+escapeICS(evt.Category))
	}

	url := evt.OfficialWebsite
	if url == "" {
		url = evt.SourceURL
	}
	if url != "" {
		writeLine(ics, "URL:"+url)
	}

	writeLine(ics, "STATUS:CONFIRMED")
	writeLine(ics, "SEQUENCE:0")
	writeLine(ics, "TRANSP:OPAQUE")
	writeLine(ics, "END:VEVENT")
}

func location(v event.Venue) string {
	var parts []string
	for _, p := range []string{v.Name, v.Address, v.City, v.Region} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// writeLine writes a content line folded at 75 octets.
func writeLine(ics *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		// Never split a multi-byte rune
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		// Continuation lines carry a leading space
		limit = maxLineOctets - 1
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
