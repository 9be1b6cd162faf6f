// Package admin serves the HTTP surface used to inspect and curate stored
// events. It is started by the serve command and never touched by scraping.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/monitor"
	"github.com/pfrederiksen/venue-events/internal/storage"
)

// DefaultLimit caps list responses when no limit is requested.
const DefaultLimit = 100

// Options configures a Server.
type Options struct {
	// Addr is the listen address used by Start.
	Addr string
	// Location decides weekdays for the weekends filter. UTC when nil.
	Location *time.Location
	Log      *logger.Logger
	Now      func() time.Time
	// Monitor adds venue health to the health endpoint when set.
	Monitor *monitor.Monitor
}

// Server is the admin HTTP server.
type Server struct {
	store      storage.Store
	router     *gin.Engine
	httpServer *http.Server
	loc        *time.Location
	log        *logger.Logger
	now        func() time.Time
	monitor    *monitor.Monitor
}

// NewServer creates an admin server backed by store.
func NewServer(store storage.Store, opts Options) *Server {
	s := &Server{
		store:   store,
		router:  gin.New(),
		loc:     opts.Location,
		log:     opts.Log,
		now:     opts.Now,
		monitor: opts.Monitor,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.log == nil {
		s.log = logger.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(RequestIDMiddleware())
	s.router.Use(gin.Recovery())
	s.router.Use(LoggingMiddleware(s.log))
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	v1.GET("/health", s.health)

	events := v1.Group("/events")
	{
		events.GET("", s.listEvents)
		events.DELETE("", s.deleteEvents)
		events.GET("/:id", s.getEvent)
		events.PATCH("/:id", s.updateEvent)
	}

	featured := v1.Group("/featured-events")
	{
		featured.GET("", s.listFeatured)
		featured.POST("", s.addFeatured)
		featured.DELETE("/:id", s.removeFeatured)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("admin server starting", logger.Fields{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
