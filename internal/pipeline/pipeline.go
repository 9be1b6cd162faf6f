package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/venue-events/internal/category"
	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/extract"
	"github.com/pfrederiksen/venue-events/internal/fetch"
	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/monitor"
	"github.com/pfrederiksen/venue-events/internal/storage"
	"github.com/pfrederiksen/venue-events/internal/venue"
)

// FetcherFactory builds the fetcher for one venue run.
type FetcherFactory func(def *venue.Definition) (fetch.Fetcher, error)

// Runner executes venue definitions against a store.
type Runner struct {
	Store      storage.Store
	NewFetcher FetcherFactory
	// Now is the runner clock. Events starting before Now are dropped.
	Now func() time.Time
	// Location is used for venues without a timezone. Nil means time.Local.
	Location *time.Location
	// DryRun skips persistence; Result.Events still holds what would be written.
	DryRun bool
	Log    *logger.Logger
	// Monitor, when set, records each non-dry run into the venue history.
	Monitor *monitor.Monitor
}

// Result summarizes one venue run.
type Result struct {
	Venue       string
	Selector    string
	Candidates  int
	Rejected    int
	Unparseable int
	Past        int
	Duplicates  int
	Inserted    int
	Skipped     int
	Failed      int
	Duration    time.Duration
	Events      []*event.Event
	Err         error
}

// Fields returns the result as log fields.
func (r *Result) Fields() logger.Fields {
	f := logger.Fields{
		"venue":       r.Venue,
		"candidates":  r.Candidates,
		"rejected":    r.Rejected,
		"unparseable": r.Unparseable,
		"past":        r.Past,
		"duplicates":  r.Duplicates,
		"inserted":    r.Inserted,
		"skipped":     r.Skipped,
		"failed":      r.Failed,
		"duration_ms": r.Duration.Milliseconds(),
	}
	if r.Selector != "" {
		f["selector"] = r.Selector
	}
	return f
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) log() *logger.Logger {
	if r.Log != nil {
		return r.Log
	}
	return logger.Default()
}

func (r *Runner) newFetcher(def *venue.Definition) (fetch.Fetcher, error) {
	if r.NewFetcher != nil {
		return r.NewFetcher(def)
	}
	return fetch.New(def.FetchMode(), def.FetchOptions(fetch.DefaultOptions()))
}

func (r *Runner) normalizer(def *venue.Definition) *event.Normalizer {
	loc := def.Location()
	if def.Timezone == "" && r.Location != nil {
		loc = r.Location
	}
	n := event.NewNormalizer(def.TimeDefaults(), loc)
	n.Now = r.now
	return n
}

// RunAll runs each definition in order and returns every result.
func (r *Runner) RunAll(ctx context.Context, defs []*venue.Definition) []*Result {
	results := make([]*Result, 0, len(defs))
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			results = append(results, &Result{Venue: def.Name, Err: err})
			continue
		}
		results = append(results, r.Run(ctx, def))
	}
	return results
}

// Run scrapes one venue. It never returns nil and never panics.
func (r *Runner) Run(ctx context.Context, def *venue.Definition) (res *Result) {
	res = &Result{Venue: def.Name}
	log := r.log().With(logger.Fields{"venue": def.Name})
	started := time.Now()

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
		}
		res.Duration = time.Since(started)
		if res.Err != nil {
			log.Error("venue run failed", res.Fields(), res.Err)
			logger.IncrCounter("venues.failed")
		} else {
			log.Info("venue run complete", res.Fields())
		}
		logger.AddCounter("events.inserted", int64(res.Inserted))
		logger.AddCounter("events.skipped", int64(res.Skipped))
		logger.RecordTiming("venue.run", res.Duration)
		r.record(ctx, res, log)
	}()

	f, err := r.newFetcher(def)
	if err != nil {
		res.Err = fmt.Errorf("creating fetcher: %w", err)
		return res
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn("closing fetcher", logger.Fields{"error": err.Error()})
		}
	}()

	page, err := f.Fetch(ctx, def.URL)
	if err != nil {
		res.Err = fmt.Errorf("fetching %s: %w", def.URL, err)
		return res
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		res.Err = fmt.Errorf("parsing HTML: %w", err)
		return res
	}
	base, _ := url.Parse(page.URL)

	extraction := def.Extractor().Extract(doc, base)
	res.Selector = extraction.Selector
	res.Candidates = len(extraction.Candidates)
	res.Rejected = extraction.Rejected
	if res.Candidates == 0 {
		log.Warn("no event blocks found", logger.Fields{"url": def.URL})
	}

	candidates := extraction.Candidates
	if def.Detail.Enabled {
		candidates = r.enrich(ctx, def, f, candidates, log)
	}

	events := r.build(def, candidates, res, log)
	r.finish(ctx, events, res, log)
	return res
}

// record adds the run to the venue history. Dry runs are not recorded.
func (r *Runner) record(ctx context.Context, res *Result, log *logger.Logger) {
	if r.Monitor == nil || r.DryRun {
		return
	}
	if _, err := r.Monitor.Record(ctx, res.Venue, len(res.Events), res.Duration, res.Err); err != nil {
		log.Warn("recording venue run", logger.Fields{"error": err.Error()})
	}
}

// build turns candidates into events, dropping unparseable and past dates.
func (r *Runner) build(def *venue.Definition, candidates []extract.Candidate, res *Result, log *logger.Logger) []*event.Event {
	normalizer := r.normalizer(def)
	table := def.CategoryTable()
	now := r.now()

	events := make([]*event.Event, 0, len(candidates))
	for _, c := range candidates {
		dates := normalizer.Normalize(c.DateText)
		if dates == nil {
			res.Unparseable++
			log.Warn("unparseable date", logger.Fields{"title": c.Title, "date_text": c.DateText})
			continue
		}
		if dates.Start.Before(now) {
			res.Past++
			continue
		}
		events = append(events, r.newEvent(def, c, dates, table.Categorize(c.Title, c.Description), now))
	}
	return events
}

func (r *Runner) newEvent(def *venue.Definition, c extract.Candidate, dates *event.DateRange, cat category.Result, now time.Time) *event.Event {
	evt := event.NewEvent(def.Place, c.Title, dates, def.URL, now)
	if def.RandomIDs() {
		evt.ID = event.RandomID()
	}
	evt.Description = c.Description
	evt.Image = c.Image
	evt.OfficialWebsite = def.OfficialWebsite(c.Link)
	evt.Category = cat.Primary
	evt.Categories = cat.All
	if def.Price != "" {
		evt.Price = def.Price
	}
	if def.Backfill() {
		evt.BackfillDescription()
	}
	return evt
}

// finish deduplicates and persists events, filling the remaining counts.
func (r *Runner) finish(ctx context.Context, events []*event.Event, res *Result, log *logger.Logger) {
	unique := event.Deduplicate(events)
	res.Duplicates = len(events) - len(unique)
	res.Events = unique

	if r.DryRun {
		return
	}
	pr := Persist(ctx, r.Store, unique, log)
	res.Inserted, res.Skipped, res.Failed = pr.Inserted, pr.Skipped, pr.Failed
}
