package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/venue-events/internal/storage"
)

const seedYAML = `
events:
  - venue: Wild Rose Brewery
    title: Oktoberfest Beer Garden
    date: September 20, 2025
    category: Festival
  - venue: wild-rose-brewery
    title: Holiday Craft Market
    start: 2025-12-06T10:00:00Z
    end: 2025-12-06T16:00:00Z
    description: Local makers and seasonal brews.
  - venue: Wild Rose Brewery
    title: oktoberfest beer garden
    date: Sep 20, 2025 6pm
  - venue: Wild Rose Brewery
    title: Last Year's Party Night
    date: March 1, 2024
  - venue: Wild Rose Brewery
    title: Menu
    date: October 1, 2025
  - venue: Random Hall
    title: New Year's Eve Gala Night
    date: December 31, 2025 9pm
  - venue: Nowhere Lounge
    title: Phantom Event Night
    date: October 1, 2025
`

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0644))

	f, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, f.Events, 7)
	require.NotNil(t, f.Events[1].Start)
	assert.True(t, f.Events[1].Start.Equal(time.Date(2025, 12, 6, 10, 0, 0, 0, time.UTC)))

	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0644))
	f, err := LoadSeed(path)
	require.NoError(t, err)

	results := fx.runner.Seed(ctx, fx.catalog, f)
	require.Len(t, results, 3)

	brewery := results[0]
	assert.Equal(t, "Wild Rose Brewery", brewery.Venue)
	assert.NoError(t, brewery.Err)
	assert.Equal(t, 5, brewery.Candidates)
	assert.Equal(t, 1, brewery.Rejected, "title too short")
	assert.Equal(t, 1, brewery.Past)
	assert.Equal(t, 1, brewery.Duplicates)
	assert.Equal(t, 2, brewery.Inserted)

	assert.Equal(t, "Random Hall", results[1].Venue)
	assert.Equal(t, 1, results[1].Inserted)

	assert.Error(t, results[2].Err)
	assert.Equal(t, 1, results[2].Failed)

	stored, err := fx.store.List(ctx, storage.Query{Cities: []string{"Calgary"}})
	require.NoError(t, err)
	require.Len(t, stored, 3)

	oktoberfest := stored[0]
	assert.Equal(t, "Oktoberfest Beer Garden", oktoberfest.Title)
	assert.Equal(t, "Festival", oktoberfest.Category)
	assert.Equal(t, "Festival", oktoberfest.Categories[0])
	assert.Equal(t, 19, oktoberfest.StartDate.Hour())

	market := stored[1]
	assert.Equal(t, "Holiday Craft Market", market.Title)
	assert.Equal(t, "Market", market.Category)
	assert.True(t, market.EndDate.Equal(time.Date(2025, 12, 6, 16, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Local makers and seasonal brews.", market.Description)

	// Seeding is idempotent.
	again := fx.runner.Seed(ctx, fx.catalog, f)
	assert.Equal(t, 0, again[0].Inserted)
	assert.Equal(t, 2, again[0].Skipped)
}

func TestExplicitRange(t *testing.T) {
	start := time.Date(2025, 12, 6, 10, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)

	dr := explicitRange(start, nil, 3*time.Hour)
	assert.True(t, dr.End.Equal(start.Add(3*time.Hour)))

	dr = explicitRange(start, &before, 3*time.Hour)
	assert.True(t, dr.End.Equal(start.Add(3*time.Hour)), "end before start is ignored")
}
