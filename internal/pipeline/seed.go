package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/extract"
	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/venue"
)

// SeedEntry is one hand-curated event. Venue names a catalog venue by key
// or name. Either Date (free text, normalized like scraped dates) or Start
// (and optionally End) must be set.
type SeedEntry struct {
	Venue       string     `yaml:"venue"`
	Title       string     `yaml:"title"`
	Date        string     `yaml:"date"`
	Start       *time.Time `yaml:"start"`
	End         *time.Time `yaml:"end"`
	Description string     `yaml:"description"`
	Category    string     `yaml:"category"`
	Image       string     `yaml:"image"`
	URL         string     `yaml:"url"`
}

// SeedFile is a YAML list of seed entries.
type SeedFile struct {
	Events []SeedEntry `yaml:"events"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return &f, nil
}

// Seed pushes curated entries through the same normalize, future filter,
// categorize, dedup and persist stages as a scrape. Entries are grouped by
// venue in first-seen order and one Result is returned per venue. Entries
// naming an unknown venue are reported on a Result with Err set.
func (r *Runner) Seed(ctx context.Context, catalog *venue.Catalog, file *SeedFile) []*Result {
	type group struct {
		def     *venue.Definition
		entries []SeedEntry
	}
	var order []string
	groups := make(map[string]*group)
	var unknown []string

	for _, e := range file.Events {
		defs, err := catalog.Find(e.Venue)
		if err != nil {
			unknown = append(unknown, e.Venue)
			continue
		}
		def := defs[0]
		g, ok := groups[def.Key]
		if !ok {
			g = &group{def: def}
			groups[def.Key] = g
			order = append(order, def.Key)
		}
		g.entries = append(g.entries, e)
	}

	results := make([]*Result, 0, len(order)+1)
	for _, key := range order {
		g := groups[key]
		results = append(results, r.seedVenue(ctx, g.def, g.entries))
	}
	if len(unknown) > 0 {
		res := &Result{Venue: "(unknown)", Failed: len(unknown), Err: fmt.Errorf("unknown venues: %v", unknown)}
		r.log().Error("seed entries skipped", logger.Fields{"venues": unknown}, res.Err)
		results = append(results, res)
	}
	return results
}

func (r *Runner) seedVenue(ctx context.Context, def *venue.Definition, entries []SeedEntry) *Result {
	res := &Result{Venue: def.Name, Selector: "seed"}
	log := r.log().With(logger.Fields{"venue": def.Name, "source": "seed"})
	started := time.Now()

	normalizer := r.normalizer(def)
	table := def.CategoryTable()
	defaults := def.TimeDefaults()
	now := r.now()

	events := make([]*event.Event, 0, len(entries))
	for _, e := range entries {
		res.Candidates++
		if !extract.ValidTitle(e.Title, nil) {
			res.Rejected++
			continue
		}

		var dates *event.DateRange
		if e.Start != nil {
			dates = explicitRange(*e.Start, e.End, defaults.Duration)
		} else {
			dates = normalizer.Normalize(e.Date)
		}
		if dates == nil {
			res.Unparseable++
			log.Warn("unparseable date", logger.Fields{"title": e.Title, "date_text": e.Date})
			continue
		}
		if dates.Start.Before(now) {
			res.Past++
			continue
		}

		c := extract.Candidate{
			Title:       e.Title,
			DateText:    e.Date,
			Description: e.Description,
			Image:       extract.CleanImage(e.Image),
			Link:        e.URL,
		}
		cat := table.Categorize(e.Title, e.Description)
		if e.Category != "" {
			all := []string{e.Category}
			for _, label := range cat.All {
				if label != e.Category {
					all = append(all, label)
				}
			}
			cat.Primary, cat.All = e.Category, all
		}
		events = append(events, r.newEvent(def, c, dates, cat, now))
	}

	r.finish(ctx, events, res, log)
	res.Duration = time.Since(started)
	log.Info("seed complete", res.Fields())
	return res
}

func explicitRange(start time.Time, end *time.Time, duration time.Duration) *event.DateRange {
	dr := &event.DateRange{Start: start, End: start.Add(duration)}
	if end != nil && !end.Before(start) {
		dr.End = *end
	}
	return dr
}
