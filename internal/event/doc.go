// Package event provides the normalized event record and the pure stages of the
// scraping pipeline that operate on it.
//
// An Event is assigned a deterministic SHA1-based ID generated from its venue
// name, title and start date, so re-running a scraper yields the same IDs.
// The package also normalizes free-text dates into concrete start/end times
// (date.go) and collapses duplicate extractions by a title+day composite key
// (dedup.go).
package event
