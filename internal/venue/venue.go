// Package venue loads per-venue scraping definitions from YAML.
//
// A definition is pure data: where the listing lives, how to fetch it, which
// selectors and keywords to use, how to categorize, and the venue metadata
// embedded on every event. One generic pipeline runs every definition.
package venue

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pfrederiksen/venue-events/internal/category"
	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/extract"
	"github.com/pfrederiksen/venue-events/internal/fetch"
)

// ID strategies.
const (
	IDHash   = "hash"
	IDRandom = "random"
)

// Definition describes one venue.
type Definition struct {
	Key     string `yaml:"key"`
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Website string `yaml:"website"`

	Fetch    string        `yaml:"fetch"`
	Settle   time.Duration `yaml:"settle"`
	Timezone string        `yaml:"timezone"`

	IDStrategy string `yaml:"id_strategy"`

	Place event.Venue `yaml:"venue"`

	Selectors []extract.Rule `yaml:"selectors"`
	Keywords  []string       `yaml:"keywords"`
	Fallback  *bool          `yaml:"fallback"`

	Categories Categories `yaml:"categories"`
	Times      Times      `yaml:"times"`
	Detail     Detail     `yaml:"detail"`

	BackfillDescription *bool  `yaml:"backfill_description"`
	Price               string `yaml:"price"`
	Disabled            bool   `yaml:"disabled"`
}

// Categories is the venue's keyword table and default labels.
type Categories struct {
	Rules   []category.Rule `yaml:"rules"`
	Default string          `yaml:"default"`
	Tags    []string        `yaml:"tags"`
}

// Times overrides the normalizer's default show times. Clock values are
// "HH:MM" in the venue's timezone.
type Times struct {
	Start      string        `yaml:"start"`
	Duration   time.Duration `yaml:"duration"`
	RangeStart string        `yaml:"range_start"`
}

// Detail enables a second fetch of each event's own page.
type Detail struct {
	Enabled bool         `yaml:"enabled"`
	Rate    float64      `yaml:"rate"`
	Burst   int          `yaml:"burst"`
	Rule    extract.Rule `yaml:"rule"`
}

// City is the venue's city.
func (d *Definition) City() string {
	return d.Place.City
}

// Matches reports whether name refers to this venue by key or name.
func (d *Definition) Matches(name string) bool {
	name = strings.TrimSpace(name)
	return strings.EqualFold(name, d.Key) || strings.EqualFold(name, d.Name)
}

// FetchMode returns the configured fetch strategy.
func (d *Definition) FetchMode() fetch.Mode {
	mode, err := fetch.ParseMode(d.Fetch)
	if err != nil {
		return fetch.ModeHTTP
	}
	return mode
}

// FetchOptions merges the venue's settle delay into base.
func (d *Definition) FetchOptions(base fetch.Options) fetch.Options {
	if d.Settle > 0 {
		base.SettleDelay = d.Settle
	}
	return base
}

// RandomIDs reports whether events get UUIDs instead of content hashes.
func (d *Definition) RandomIDs() bool {
	return strings.EqualFold(d.IDStrategy, IDRandom)
}

// Backfill reports whether empty descriptions are filled in. Default true.
func (d *Definition) Backfill() bool {
	return d.BackfillDescription == nil || *d.BackfillDescription
}

// FallbackEnabled reports whether the keyword text heuristic runs when no
// selector matches. Default true.
func (d *Definition) FallbackEnabled() bool {
	return d.Fallback == nil || *d.Fallback
}

// Location returns the venue's timezone, or time.Local.
func (d *Definition) Location() *time.Location {
	if d.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// TimeDefaults returns the normalizer defaults for this venue.
func (d *Definition) TimeDefaults() event.TimeDefaults {
	defaults := event.DefaultTimeDefaults()
	if h, m, err := parseClock(d.Times.Start); err == nil {
		defaults.StartHour, defaults.StartMinute = h, m
	}
	if d.Times.Duration > 0 {
		defaults.Duration = d.Times.Duration
	}
	if h, _, err := parseClock(d.Times.RangeStart); err == nil {
		defaults.RangeStartHour = h
	}
	return defaults
}

// Normalizer returns a date normalizer in the venue's timezone.
func (d *Definition) Normalizer() *event.Normalizer {
	return event.NewNormalizer(d.TimeDefaults(), d.Location())
}

// Extractor returns the venue's selectors followed by the default chain.
func (d *Definition) Extractor() *extract.Extractor {
	return extract.New(d.Selectors, d.Keywords, d.FallbackEnabled())
}

// CategoryTable returns the venue's table, or the default table when the
// venue defines no rules.
func (d *Definition) CategoryTable() category.Table {
	table := category.Table{
		Rules:    d.Categories.Rules,
		Fallback: d.Categories.Default,
		Defaults: d.Categories.Tags,
	}
	if len(table.Rules) == 0 {
		table.Rules = category.DefaultRules
	}
	return table
}

// OfficialWebsite is the event link when present, else the venue website.
func (d *Definition) OfficialWebsite(link string) string {
	if link != "" {
		return link
	}
	if d.Website != "" {
		return d.Website
	}
	return d.URL
}

// Validate checks required fields and parses every configured value.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if d.URL == "" {
		return fmt.Errorf("%s: url is required", d.Name)
	}
	u, err := url.Parse(d.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s: invalid url %q", d.Name, d.URL)
	}
	if _, err := fetch.ParseMode(d.Fetch); err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	if d.Timezone != "" {
		if _, err := time.LoadLocation(d.Timezone); err != nil {
			return fmt.Errorf("%s: invalid timezone %q: %w", d.Name, d.Timezone, err)
		}
	}
	switch strings.ToLower(d.IDStrategy) {
	case "", IDHash, IDRandom:
	default:
		return fmt.Errorf("%s: unknown id_strategy %q", d.Name, d.IDStrategy)
	}
	if d.Times.Start != "" {
		if _, _, err := parseClock(d.Times.Start); err != nil {
			return fmt.Errorf("%s: times.start: %w", d.Name, err)
		}
	}
	if d.Times.RangeStart != "" {
		if _, _, err := parseClock(d.Times.RangeStart); err != nil {
			return fmt.Errorf("%s: times.range_start: %w", d.Name, err)
		}
	}
	if d.Times.Duration < 0 {
		return fmt.Errorf("%s: times.duration must not be negative", d.Name)
	}
	for i, rule := range d.Selectors {
		if strings.TrimSpace(rule.Selector) == "" {
			return fmt.Errorf("%s: selectors[%d]: selector is required", d.Name, i)
		}
	}
	for i, rule := range d.Categories.Rules {
		if strings.TrimSpace(rule.Keyword) == "" || strings.TrimSpace(rule.Label) == "" {
			return fmt.Errorf("%s: categories.rules[%d]: keyword and label are required", d.Name, i)
		}
	}
	if d.Detail.Rate < 0 {
		return fmt.Errorf("%s: detail.rate must not be negative", d.Name)
	}
	return nil
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q (want HH:MM)", s)
	}
	return t.Hour(), t.Minute(), nil
}
