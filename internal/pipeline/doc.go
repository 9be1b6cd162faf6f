// Package pipeline runs one venue definition end to end:
// fetch, extract, normalize dates, drop past events, categorize,
// deduplicate and persist.
//
// Runs are best-effort. A fetch or parse failure is recorded on the Result
// and logged with the venue name; it never aborts other venues and never
// becomes a process failure. The fetcher is closed on every exit path,
// including panics.
package pipeline
