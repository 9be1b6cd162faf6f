package monitor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/storage"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newMonitor(t *testing.T) (*Monitor, *storage.FileStore, *clock, *bytes.Buffer) {
	t.Helper()
	store, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)
	var buf bytes.Buffer
	m := New(store, DefaultConfig(), logger.New(logger.LevelInfo, &buf))
	c := &clock{t: time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)}
	m.Now = c.now
	return m, store, c, &buf
}

func TestRecord_AlertsAfterThreshold(t *testing.T) {
	m, _, c, buf := newMonitor(t)
	ctx := context.Background()

	st, err := m.Record(ctx, "Wild Rose", 4, time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Streak)

	for i := 1; i <= 2; i++ {
		c.advance(time.Hour)
		st, err = m.Record(ctx, "Wild Rose", 0, time.Second, nil)
		require.NoError(t, err)
		assert.Equal(t, i, st.Streak)
		assert.False(t, st.Alerted)
	}
	assert.Contains(t, buf.String(), "venue returned no events")
	assert.NotContains(t, buf.String(), "selectors may need attention")

	c.advance(time.Hour)
	st, err = m.Record(ctx, "Wild Rose", 0, time.Second, errors.New("fetch failed"))
	require.NoError(t, err)
	assert.Equal(t, 3, st.Streak)
	assert.True(t, st.Alerted)
	assert.Contains(t, buf.String(), "selectors may need attention")
	assert.Contains(t, buf.String(), `"consecutive_failures":3`)
	assert.Contains(t, buf.String(), "fetch failed")
}

func TestRecord_AlertAtMostOncePerInterval(t *testing.T) {
	m, _, c, buf := newMonitor(t)
	ctx := context.Background()

	alerts := 0
	for i := 0; i < 6; i++ {
		st, err := m.Record(ctx, "Wild Rose", 0, time.Second, nil)
		require.NoError(t, err)
		if st.Alerted {
			alerts++
		}
		c.advance(time.Hour)
	}
	assert.Equal(t, 1, alerts)
	assert.Equal(t, 1, strings.Count(buf.String(), "selectors may need attention"))

	c.advance(DefaultAlertInterval)
	st, err := m.Record(ctx, "Wild Rose", 0, time.Second, nil)
	require.NoError(t, err)
	assert.True(t, st.Alerted)
	assert.Equal(t, 7, st.Streak)
}

func TestRecord_SuccessResetsStreak(t *testing.T) {
	m, _, c, _ := newMonitor(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := m.Record(ctx, "Wild Rose", 0, time.Second, nil)
		require.NoError(t, err)
		c.advance(time.Hour)
	}
	st, err := m.Record(ctx, "Wild Rose", 3, time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Streak)

	c.advance(time.Hour)
	st, err = m.Record(ctx, "Wild Rose", 0, time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Streak)
	assert.False(t, st.Alerted)
}

func TestRecord_KeepsHistoryLength(t *testing.T) {
	m, store, c, _ := newMonitor(t)
	ctx := context.Background()

	for i := 0; i < DefaultHistoryLength+5; i++ {
		_, err := m.Record(ctx, "Wild Rose", i+1, time.Duration(i)*time.Millisecond, nil)
		require.NoError(t, err)
		c.advance(time.Minute)
	}
	runs, err := store.Runs(ctx, "Wild Rose")
	require.NoError(t, err)
	require.Len(t, runs, DefaultHistoryLength)
	assert.Equal(t, 6, runs[0].Events)
	assert.Equal(t, DefaultHistoryLength+5, runs[len(runs)-1].Events)
}

func TestStats(t *testing.T) {
	m, _, c, _ := newMonitor(t)
	ctx := context.Background()

	record := func(venue string, events int, err error) {
		t.Helper()
		_, rerr := m.Record(ctx, venue, events, time.Second, err)
		require.NoError(t, rerr)
		c.advance(time.Minute)
	}

	// Two of the last three failed.
	record("Broken Hall", 5, nil)
	record("Broken Hall", 0, nil)
	record("Broken Hall", 2, nil)
	record("Broken Hall", 0, errors.New("timeout"))
	// Only one of the last three failed.
	record("Wild Rose", 0, nil)
	record("Wild Rose", 3, nil)
	record("Wild Rose", 4, nil)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalVenues)
	assert.Equal(t, 7, stats.TotalRuns)

	require.Len(t, stats.Failing, 1)
	broken := stats.Failing[0]
	assert.Equal(t, "Broken Hall", broken.Venue)
	assert.Equal(t, 2, broken.RecentFailures)
	assert.Equal(t, 1, broken.ConsecutiveFailures)
	assert.Equal(t, "timeout", broken.LastError)
	require.NotNil(t, broken.LastSuccess)
	assert.Equal(t, time.Date(2025, 7, 1, 12, 2, 0, 0, time.UTC), *broken.LastSuccess)

	require.Len(t, stats.Healthy, 1)
	rose := stats.Healthy[0]
	assert.Equal(t, "Wild Rose", rose.Venue)
	assert.Equal(t, 1, rose.RecentFailures)
	assert.Equal(t, 0, rose.ConsecutiveFailures)
	assert.Equal(t, 4, rose.LastEvents)
}

func TestStats_Empty(t *testing.T) {
	m, _, _, _ := newMonitor(t)
	stats, err := m.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalVenues)
	assert.NotNil(t, stats.Failing)
	assert.NotNil(t, stats.Healthy)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero history", Config{HistoryLength: 0, AlertThreshold: 3}},
		{"zero threshold", Config{HistoryLength: 10, AlertThreshold: 0}},
		{"negative interval", Config{HistoryLength: 10, AlertThreshold: 3, AlertInterval: -time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}
