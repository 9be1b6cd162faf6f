package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/filter"
	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/storage"
)

// ListResponse is returned by GET /events.
type ListResponse struct {
	Count  int            `json:"count"`
	Filter string         `json:"filter"`
	Events []*event.Event `json:"events"`
}

// DeleteRequest is the body of DELETE /events.
type DeleteRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"time":    s.now().UTC(),
		"metrics": logger.GetMetricsSnapshot(),
	}
	if s.monitor != nil {
		stats, err := s.monitor.Stats(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			body["status"] = "degraded"
		} else {
			body["venues"] = stats
			if len(stats.Failing) > 0 {
				body["status"] = "degraded"
			}
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) listEvents(c *gin.Context) {
	f, err := s.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
	}

	q := storeQuery(f, limit)
	events, err := s.store.List(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing events failed"})
		return
	}

	events = f.Apply(events)
	if events == nil {
		events = []*event.Event{}
	}
	if len(events) > limit {
		events = events[:limit]
	}

	c.JSON(http.StatusOK, ListResponse{
		Count:  len(events),
		Filter: f.String(),
		Events: events,
	})
}

// storeQuery pushes every filter the store can evaluate into the query. The
// limit is pushed only when nothing is left to filter in memory.
func storeQuery(f *filter.Filter, limit int) storage.Query {
	q := storage.Query{
		Cities:     f.Cities,
		Venues:     f.Venues,
		Categories: f.Categories,
	}
	if f.DateFrom != nil {
		q.From = *f.DateFrom
	}
	if f.DateTo != nil {
		q.To = *f.DateTo
	}
	if strings.TrimSpace(f.Query) == "" && !f.WeekendsOnly {
		q.Limit = limit
	}
	return q
}

// parseFilter builds a filter from city, venue, category, q, from, to and
// weekends query parameters. A bare "to" day covers the whole day.
func (s *Server) parseFilter(c *gin.Context) (*filter.Filter, error) {
	f := filter.NewFilter()
	f.Location = s.loc
	f.Cities = splitParam(c.Query("city"))
	f.Venues = splitParam(c.Query("venue"))
	f.Categories = splitParam(c.Query("category"))
	f.Query = c.Query("q")

	if raw := c.Query("from"); raw != "" {
		from, err := filter.ParseDay(raw)
		if err != nil {
			return nil, err
		}
		f.DateFrom = &from
	}

	if raw := c.Query("to"); raw != "" {
		to, err := filter.ParseDay(raw)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(raw, "T") {
			to = filter.EndOfDay(to)
		}
		f.DateTo = &to
	}

	if raw := c.Query("weekends"); raw != "" {
		weekends, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.New("weekends must be a boolean")
		}
		f.WeekendsOnly = weekends
	}

	return f, nil
}

func (s *Server) getEvent(c *gin.Context) {
	evt, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loading event failed"})
		return
	}
	c.JSON(http.StatusOK, evt)
}

func (s *Server) updateEvent(c *gin.Context) {
	var u storage.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if u.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no editable fields supplied"})
		return
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be empty"})
		return
	}
	if u.Category != nil && strings.TrimSpace(*u.Category) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category cannot be empty"})
		return
	}

	id := c.Param("id")
	evt, err := s.store.Update(c.Request.Context(), id, u)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "updating event failed"})
		return
	}

	s.log.Info("event updated", logger.Fields{"id": id, "request_id": c.GetString(requestIDKey)})
	c.JSON(http.StatusOK, evt)
}

func (s *Server) deleteEvents(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := s.store.DeleteMany(c.Request.Context(), req.IDs)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deleting events failed"})
		return
	}

	s.log.Info("events deleted", logger.Fields{"requested": len(req.IDs), "deleted": deleted})
	logger.AddCounter("events.deleted", int64(deleted))
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func splitParam(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
