package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/venue-events/internal/config"
	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/monitor"
)

const listingHTML = `<html><body>
<div class="event">
  <h3 class="event-title">Patio Jazz with the Quartet</h3>
  <span class="date">July 15, 2099 | 8:00pm</span>
  <p class="description">Live jazz on the patio all evening.</p>
</div>
<div class="event">
  <h3 class="event-title">Comedy Night Showcase</h3>
  <span class="date">August 2, 2099 9pm</span>
</div>
<div class="event">
  <h3 class="event-title">Menu</h3>
  <span class="date">August 3, 2099</span>
</div>
</body></html>`

const venuesTemplate = `venues:
  - key: test-brewery
    name: Test Brewery
    url: %[1]s/events
    timezone: UTC
    venue:
      city: Calgary
  - key: broken-hall
    name: Broken Hall
    url: %[1]s/broken
    timezone: UTC
    venue:
      city: Toronto
  - key: closed-club
    name: Closed Club
    url: %[1]s/closed
    disabled: true
    venue:
      city: Calgary
`

type harness struct {
	venues  string
	dataDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/events":
			fmt.Fprint(w, listingHTML)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	venues := filepath.Join(dir, "venues.yaml")
	require.NoError(t, os.WriteFile(venues, []byte(fmt.Sprintf(venuesTemplate, srv.URL)), 0644))

	dataDir := filepath.Join(dir, "data")
	t.Setenv("MONGODB_URI", "file://"+dataDir)
	t.Setenv("VENUE_EVENTS_STORE_URI", "")
	t.Setenv("VENUE_EVENTS_LOG_LEVEL", "error")

	return &harness{venues: venues, dataDir: dataDir}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--venues", h.venues))
	err := cmd.Execute()
	return out.String(), err
}

func TestScrapeCmd(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "scrape", "--format", "json")
	require.NoError(t, err)

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Len(t, summary.Venues, 2, "disabled venues are not scraped")
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Failed)

	brewery, broken := summary.Venues[0], summary.Venues[1]
	assert.Equal(t, "Test Brewery", brewery.Venue)
	assert.Equal(t, 2, brewery.Candidates)
	assert.Equal(t, 1, brewery.Rejected)
	assert.Empty(t, brewery.Error)
	assert.Contains(t, broken.Error, "500")

	// Second run inserts nothing new
	out, err = h.run(t, "scrape", "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 2, summary.Skipped)
}

func TestScrapeCmd_SelectsVenues(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "scrape", "test-brewery")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Brewery")
	assert.NotContains(t, out, "Broken Hall")
	assert.Contains(t, out, "Total: 2 inserted, 0 skipped across 1 venues")

	out, err = h.run(t, "scrape", "--city", "toronto")
	require.NoError(t, err)
	assert.Contains(t, out, "Broken Hall")
	assert.Contains(t, out, "(1 failed)")
}

func TestScrapeCmd_DryRunNeedsNoStore(t *testing.T) {
	h := newHarness(t)
	t.Setenv("MONGODB_URI", "")

	out, err := h.run(t, "scrape", "test-brewery", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: 2 events would be written")
	assert.Contains(t, out, "Patio Jazz with the Quartet")

	_, err = os.Stat(h.dataDir)
	assert.True(t, os.IsNotExist(err))
}

func TestScrapeCmd_SetupErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "scrape", "no-such-venue")
	assert.Error(t, err)

	_, err = h.run(t, "scrape", "--format", "xml")
	assert.Error(t, err)

	t.Setenv("MONGODB_URI", "")
	_, err = h.run(t, "scrape")
	assert.True(t, errors.Is(err, config.ErrMissingStoreURI))

	t.Setenv("MONGODB_URI", "redis://localhost")
	_, err = h.run(t, "scrape")
	assert.Error(t, err)
}

func TestVenuesCmd(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "venues", "--format", "json")
	require.NoError(t, err)

	var lines []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &lines))
	require.Len(t, lines, 2)
	assert.Equal(t, "test-brewery", lines[0]["key"])
	assert.Equal(t, "http", lines[0]["fetch"])

	out, err = h.run(t, "venues", "--all", "--city", "calgary")
	require.NoError(t, err)
	assert.Contains(t, out, "Closed Club (disabled)")
	assert.NotContains(t, out, "Broken Hall")
}

func TestVenuesCmd_Stats(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "venues", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "No recorded runs.")

	for i := 0; i < 2; i++ {
		_, err = h.run(t, "scrape")
		require.NoError(t, err)
	}
	_, err = h.run(t, "scrape", "test-brewery", "--dry-run")
	require.NoError(t, err)

	out, err = h.run(t, "venues", "--stats", "--format", "json")
	require.NoError(t, err)

	var stats monitor.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.TotalVenues)
	assert.Equal(t, 4, stats.TotalRuns, "dry runs are not recorded")

	require.Len(t, stats.Failing, 1)
	assert.Equal(t, "Broken Hall", stats.Failing[0].Venue)
	assert.Equal(t, 2, stats.Failing[0].ConsecutiveFailures)
	assert.Contains(t, stats.Failing[0].LastError, "500")

	require.Len(t, stats.Healthy, 1)
	assert.Equal(t, "Test Brewery", stats.Healthy[0].Venue)
	assert.Equal(t, 2, stats.Healthy[0].LastEvents)

	out, err = h.run(t, "venues", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "FAILING")
	assert.Contains(t, out, "2 venues, 4 runs, 1 failing")

	t.Setenv("MONGODB_URI", "")
	_, err = h.run(t, "venues", "--stats")
	assert.True(t, errors.Is(err, config.ErrMissingStoreURI))
}

func TestVenuesCmd_RepoCatalog(t *testing.T) {
	newHarness(t)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"venues", "--venues", "../../configs/venues.yaml"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "wild-rose-brewery")
	assert.Contains(t, out.String(), "browser")
}

func TestEventsCmd(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "scrape", "test-brewery")
	require.NoError(t, err)

	out, err := h.run(t, "events", "--format", "json", "--sort", "title")
	require.NoError(t, err)
	var events []*event.Event
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "Comedy Night Showcase", events[0].Title)
	assert.Equal(t, "Comedy", events[0].Category)

	out, err = h.run(t, "events", "-q", "jazz", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Patio Jazz with the Quartet")
	assert.NotContains(t, out, "Comedy Night")
	assert.Contains(t, out, `Filter: Query: "jazz"`)

	out, err = h.run(t, "events", "--range", "Aug 1-5", "--format", "ics")
	require.NoError(t, err)
	assert.Equal(t, 0, strings.Count(out, "BEGIN:VEVENT"), "range is resolved against the current year")

	out, err = h.run(t, "events", "--from", "2099-08-01", "--to", "2099-08-02", "--format", "ics")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "SUMMARY:Comedy Night Showcase")

	out, err = h.run(t, "events", "--city", "Vancouver")
	require.NoError(t, err)
	assert.Contains(t, out, "No events found.")
}

func TestEventsCmd_BadFlags(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{
		{"events", "--sort", "price"},
		{"events", "--format", "xml"},
		{"events", "--range", "Mar 1-5", "--from", "2099-01-01"},
		{"events", "--from", "tomorrow"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := h.run(t, args...)
			assert.Error(t, err)
		})
	}
}

const seedTemplate = `events:
  - venue: test-brewery
    title: Holiday Craft Market
    start: 2099-12-06T10:00:00Z
    end: 2099-12-06T16:00:00Z
    category: Market
  - venue: Closed Club
    title: Private Listening Party
    date: December 31, 2099 9pm
  - venue: nowhere
    title: Phantom Event Night
    date: October 1, 2099
`

func TestSeedCmd(t *testing.T) {
	h := newHarness(t)

	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(seedTemplate), 0644))

	out, err := h.run(t, "seed", seed, "--format", "json")
	require.NoError(t, err)

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Failed, "unknown venue is reported")

	out, err = h.run(t, "events", "--category", "market", "--format", "json")
	require.NoError(t, err)
	var events []*event.Event
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Holiday Craft Market", events[0].Title)

	_, err = h.run(t, "seed")
	assert.Error(t, err, "seed requires a file")

	_, err = h.run(t, "seed", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewRootCmd_Commands(t *testing.T) {
	cmd := NewRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"scrape", "venues", "seed", "events", "serve"} {
		assert.True(t, names[want], "missing command %s", want)
	}
	for _, flag := range []string{"config", "venues", "log-level", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag --%s", flag)
	}
}
