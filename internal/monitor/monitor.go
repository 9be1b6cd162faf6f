// Package monitor keeps per-venue scrape history and flags venues that keep
// coming back empty, which usually means the venue changed its markup.
//
// A run fails when it errors or finds no events. After AlertThreshold
// consecutive failures a warning is logged, at most once per AlertInterval
// for each venue.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/storage"
)

const (
	DefaultHistoryLength  = 10
	DefaultAlertThreshold = 3
	DefaultAlertInterval  = 24 * time.Hour

	// A venue is failing when at least failingRuns of its last recentRuns failed.
	recentRuns  = 3
	failingRuns = 2
)

// Config tunes history retention and alerting.
type Config struct {
	HistoryLength  int           `json:"history_length"`
	AlertThreshold int           `json:"alert_threshold"`
	AlertInterval  time.Duration `json:"alert_interval"`
}

// DefaultConfig returns ten runs of history and an alert after three
// consecutive failures, repeated at most daily.
func DefaultConfig() Config {
	return Config{
		HistoryLength:  DefaultHistoryLength,
		AlertThreshold: DefaultAlertThreshold,
		AlertInterval:  DefaultAlertInterval,
	}
}

// Validate rejects settings that disable history or alerting by accident.
func (c Config) Validate() error {
	if c.HistoryLength < 1 {
		return fmt.Errorf("monitor.history must be at least 1, got %d", c.HistoryLength)
	}
	if c.AlertThreshold < 1 {
		return fmt.Errorf("monitor.alert_threshold must be at least 1, got %d", c.AlertThreshold)
	}
	if c.AlertInterval < 0 {
		return errors.New("monitor.alert_interval cannot be negative")
	}
	return nil
}

// Monitor records venue runs into a store.
type Monitor struct {
	store storage.Store
	cfg   Config
	log   *logger.Logger
	// Now stamps recorded runs. Defaults to time.Now.
	Now func() time.Time
}

// New creates a Monitor. A nil log uses the package default logger.
func New(store storage.Store, cfg Config, log *logger.Logger) *Monitor {
	if log == nil {
		log = logger.Default()
	}
	return &Monitor{store: store, cfg: cfg, log: log, Now: time.Now}
}

// Status is the outcome of recording one run.
type Status struct {
	Venue string
	// Streak counts consecutive failed runs ending with this one.
	Streak  int
	Alerted bool
}

// Record stores one venue run and raises an alert when the venue has failed
// AlertThreshold times in a row.
func (m *Monitor) Record(ctx context.Context, venue string, events int, duration time.Duration, runErr error) (*Status, error) {
	history, err := m.store.Runs(ctx, venue)
	if err != nil {
		return nil, fmt.Errorf("loading run history: %w", err)
	}

	run := storage.VenueRun{
		Venue:      venue,
		At:         m.Now().UTC(),
		Events:     events,
		DurationMS: duration.Milliseconds(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	status := &Status{Venue: venue, Streak: streak(append(history, run))}
	fields := logger.Fields{
		"venue":                venue,
		"events":               events,
		"duration_ms":          run.DurationMS,
		"consecutive_failures": status.Streak,
	}

	if runErr == nil && events == 0 {
		m.log.Warn("venue returned no events", fields)
	}

	if status.Streak >= m.cfg.AlertThreshold && !alertedSince(history, run.At.Add(-m.cfg.AlertInterval)) {
		run.Alerted = true
		status.Alerted = true
		if run.Error != "" {
			fields["last_error"] = run.Error
		}
		m.log.Warn("venue keeps failing, selectors may need attention", fields)
		logger.IncrCounter("venues.alerts")
	}

	if err := m.store.RecordRun(ctx, run, m.cfg.HistoryLength); err != nil {
		return status, fmt.Errorf("recording run: %w", err)
	}
	return status, nil
}

// streak counts failed runs from the newest backwards.
func streak(runs []storage.VenueRun) int {
	n := 0
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Success() {
			break
		}
		n++
	}
	return n
}

func alertedSince(runs []storage.VenueRun, since time.Time) bool {
	for _, r := range runs {
		if r.Alerted && r.At.After(since) {
			return true
		}
	}
	return false
}

// VenueHealth summarises the recorded history of one venue.
type VenueHealth struct {
	Venue               string     `json:"venue"`
	Runs                int        `json:"runs"`
	LastRun             time.Time  `json:"lastRun"`
	LastEvents          int        `json:"lastEvents"`
	LastSuccess         *time.Time `json:"lastSuccess,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	RecentFailures      int        `json:"recentFailures"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
}

// Stats splits venues into failing and healthy.
type Stats struct {
	TotalVenues int           `json:"totalVenues"`
	TotalRuns   int           `json:"totalRuns"`
	Failing     []VenueHealth `json:"failing"`
	Healthy     []VenueHealth `json:"healthy"`
}

// Stats reports every venue with recorded runs. A venue is failing when
// two of its last three runs failed.
func (m *Monitor) Stats(ctx context.Context) (*Stats, error) {
	runs, err := m.store.Runs(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("loading run history: %w", err)
	}

	stats := &Stats{Failing: []VenueHealth{}, Healthy: []VenueHealth{}}
	// Runs come back grouped by venue, oldest first.
	for start := 0; start < len(runs); {
		end := start
		for end < len(runs) && runs[end].Venue == runs[start].Venue {
			end++
		}
		h := health(runs[start:end])
		stats.TotalVenues++
		stats.TotalRuns += h.Runs
		if h.RecentFailures >= failingRuns {
			stats.Failing = append(stats.Failing, h)
		} else {
			stats.Healthy = append(stats.Healthy, h)
		}
		start = end
	}
	return stats, nil
}

func health(runs []storage.VenueRun) VenueHealth {
	last := runs[len(runs)-1]
	h := VenueHealth{
		Venue:               last.Venue,
		Runs:                len(runs),
		LastRun:             last.At,
		LastEvents:          last.Events,
		LastError:           last.Error,
		ConsecutiveFailures: streak(runs),
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Success() {
			at := runs[i].At
			h.LastSuccess = &at
			break
		}
	}
	recent := runs
	if len(recent) > recentRuns {
		recent = recent[len(recent)-recentRuns:]
	}
	for _, r := range recent {
		if !r.Success() {
			h.RecentFailures++
		}
	}
	return h
}
