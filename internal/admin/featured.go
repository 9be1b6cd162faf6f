package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/storage"
)

// FeaturedRequest is the body of POST /featured-events.
type FeaturedRequest struct {
	EventID string `json:"eventId" binding:"required"`
}

// FeaturedEvent is one entry of the featured list with its event resolved.
type FeaturedEvent struct {
	storage.Featured
	Event *event.Event `json:"event"`
}

// FeaturedResponse is returned by GET /featured-events.
type FeaturedResponse struct {
	Count  int             `json:"count"`
	Events []FeaturedEvent `json:"events"`
}

// listFeatured returns featured events in display order. Entries whose event
// has since been deleted are skipped.
func (s *Server) listFeatured(c *gin.Context) {
	ctx := c.Request.Context()
	entries, err := s.store.ListFeatured(ctx)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing featured events failed"})
		return
	}

	out := make([]FeaturedEvent, 0, len(entries))
	for _, f := range entries {
		evt, err := s.store.Get(ctx, f.EventID)
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("featured event missing", logger.Fields{"id": f.EventID})
			continue
		}
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "loading featured event failed"})
			return
		}
		out = append(out, FeaturedEvent{Featured: f, Event: evt})
	}
	c.JSON(http.StatusOK, FeaturedResponse{Count: len(out), Events: out})
}

func (s *Server) addFeatured(c *gin.Context) {
	var req FeaturedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := s.store.AddFeatured(c.Request.Context(), req.EventID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	case errors.Is(err, storage.ErrAlreadyFeatured):
		c.JSON(http.StatusBadRequest, gin.H{"error": "event is already featured"})
		return
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "featuring event failed"})
		return
	}

	s.log.Info("event featured", logger.Fields{"id": f.EventID, "order": f.Order})
	c.JSON(http.StatusCreated, f)
}

func (s *Server) removeFeatured(c *gin.Context) {
	id := c.Param("id")
	err := s.store.RemoveFeatured(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFeatured) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event is not featured"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "removing featured event failed"})
		return
	}

	s.log.Info("event unfeatured", logger.Fields{"id": id})
	c.JSON(http.StatusOK, gin.H{"removed": id})
}
