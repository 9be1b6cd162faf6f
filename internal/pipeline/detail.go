package pipeline

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/venue-events/internal/extract"
	"github.com/pfrederiksen/venue-events/internal/fetch"
	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/venue"
)

// enrich visits each candidate's own page and fills fields the listing
// left empty. Detail fetches are throttled; a failed detail page keeps the
// listing data as is.
func (r *Runner) enrich(ctx context.Context, def *venue.Definition, f fetch.Fetcher, candidates []extract.Candidate, log *logger.Logger) []extract.Candidate {
	limited := fetch.NewLimited(f, def.Detail.Rate, def.Detail.Burst)
	out := make([]extract.Candidate, 0, len(candidates))

	for _, c := range candidates {
		if c.Link == "" || ctx.Err() != nil {
			out = append(out, c)
			continue
		}
		page, err := limited.Fetch(ctx, c.Link)
		if err != nil {
			log.Warn("detail page failed", logger.Fields{"url": c.Link, "error": err.Error()})
			out = append(out, c)
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
		if err != nil {
			out = append(out, c)
			continue
		}
		base, _ := url.Parse(page.URL)
		out = append(out, mergeDetail(c, detailBlock(doc, def.Detail.Rule), def.Detail.Rule, base))
	}
	return out
}

func detailBlock(doc *goquery.Document, rule extract.Rule) *goquery.Selection {
	if rule.Selector != "" {
		if sel := doc.Find(rule.Selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Selection
}

// mergeDetail fills empty candidate fields from the detail page. Title is
// never replaced; the listing title already passed validation.
func mergeDetail(c extract.Candidate, block *goquery.Selection, rule extract.Rule, base *url.URL) extract.Candidate {
	d := extract.ExtractBlock(block, rule, base)
	if c.Description == "" {
		c.Description = d.Description
	}
	if c.Image == "" {
		c.Image = d.Image
	}
	if c.DateText == "" {
		c.DateText = d.DateText
	}
	return c
}
