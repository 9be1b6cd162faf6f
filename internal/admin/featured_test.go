package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/monitor"
	"github.com/pfrederiksen/venue-events/internal/storage"
)

func decodeFeatured(t *testing.T, rec *httptest.ResponseRecorder) FeaturedResponse {
	t.Helper()
	var resp FeaturedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func featuredIDs(resp FeaturedResponse) []string {
	out := make([]string, len(resp.Events))
	for i, f := range resp.Events {
		out[i] = f.Event.ID
	}
	return out
}

func TestFeaturedEvents(t *testing.T) {
	srv, store := seededServer(t)

	rec := do(t, srv, http.MethodGet, "/api/v1/featured-events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeFeatured(t, rec)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Events)

	for _, id := range []string{"market", "jazz", "trivia"} {
		rec = do(t, srv, http.MethodPost, "/api/v1/featured-events", FeaturedRequest{EventID: id})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	var added storage.Featured
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, "trivia", added.EventID)
	assert.Equal(t, 2, added.Order)

	resp = decodeFeatured(t, do(t, srv, http.MethodGet, "/api/v1/featured-events", nil))
	assert.Equal(t, []string{"market", "jazz", "trivia"}, featuredIDs(resp))
	assert.Equal(t, "Night Market", resp.Events[0].Event.Title)

	rec = do(t, srv, http.MethodPost, "/api/v1/featured-events", FeaturedRequest{EventID: "jazz"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already featured")

	rec = do(t, srv, http.MethodPost, "/api/v1/featured-events", FeaturedRequest{EventID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/featured-events", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/v1/featured-events/market", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/v1/featured-events/market", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	resp = decodeFeatured(t, do(t, srv, http.MethodGet, "/api/v1/featured-events", nil))
	require.Equal(t, []string{"jazz", "trivia"}, featuredIDs(resp))
	assert.Equal(t, 0, resp.Events[0].Order)
	assert.Equal(t, 1, resp.Events[1].Order)

	// A deleted event drops out of the list without breaking it.
	_, err := store.DeleteMany(context.Background(), []string{"jazz"})
	require.NoError(t, err)
	resp = decodeFeatured(t, do(t, srv, http.MethodGet, "/api/v1/featured-events", nil))
	assert.Equal(t, []string{"trivia"}, featuredIDs(resp))
}

type failingFeaturedStore struct {
	storage.Store
}

func (failingFeaturedStore) ListFeatured(context.Context) ([]storage.Featured, error) {
	return nil, errors.New("connection reset")
}

func TestFeaturedEvents_StoreError(t *testing.T) {
	_, store := seededServer(t)
	srv := NewServer(failingFeaturedStore{Store: store}, Options{Log: logger.New(logger.LevelError, io.Discard)})

	rec := do(t, srv, http.MethodGet, "/api/v1/featured-events", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestHealth_VenueStats(t *testing.T) {
	_, store := seededServer(t)
	mon := monitor.New(store, monitor.DefaultConfig(), logger.New(logger.LevelError, io.Discard))
	srv := NewServer(store, Options{Log: logger.New(logger.LevelError, io.Discard), Monitor: mon})
	ctx := context.Background()

	_, err := mon.Record(ctx, "Wild Rose Brewery", 4, time.Second, nil)
	require.NoError(t, err)

	rec := do(t, srv, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string        `json:"status"`
		Venues monitor.Stats `json:"venues"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Venues.TotalVenues)
	require.Len(t, body.Venues.Healthy, 1)
	assert.Equal(t, 4, body.Venues.Healthy[0].LastEvents)

	for i := 0; i < 2; i++ {
		_, err = mon.Record(ctx, "Harbourfront Centre", 0, time.Second, errors.New("unexpected status code: 503"))
		require.NoError(t, err)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/health", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	require.Len(t, body.Venues.Failing, 1)
	assert.Equal(t, "Harbourfront Centre", body.Venues.Failing[0].Venue)
}
