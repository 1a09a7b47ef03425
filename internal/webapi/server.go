package webapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lotreel/internal/catalog"
	"lotreel/internal/config"
	"lotreel/internal/coordinator"
	"lotreel/internal/logging"
	"lotreel/internal/regen"
	"lotreel/internal/review"
)

// Server exposes the orchestration core over HTTP: listing ingest and
// inspection, stage dispatch and regeneration, the review gate, job polling,
// and byte-range video serving.
type Server struct {
	bind   string
	logger *slog.Logger

	store *catalog.Store
	coord *coordinator.Coordinator
	gate  *review.Gate
	regen *regen.Controller

	listener net.Listener
	server   *http.Server
}

// New wires the HTTP surface. A blank bind address disables the server.
func New(cfg *config.Config, store *catalog.Store, coord *coordinator.Coordinator, gate *review.Gate, ctrl *regen.Controller, logger *slog.Logger) *Server {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &Server{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "webapi"),
		store:  store,
		coord:  coord,
		gate:   gate,
		regen:  ctrl,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(srv.logRequests(), gin.Recovery())

	api := engine.Group("/api")
	api.POST("/listings", srv.createListing)
	api.GET("/listings", srv.listListings)
	api.GET("/listings/:id", srv.getListing)
	api.POST("/listings/:id/dispatch", srv.dispatchStage)
	api.POST("/listings/:id/regenerate", srv.regenerateStage)
	api.GET("/listings/:id/video", srv.serveVideo)

	api.GET("/listings/:id/script", srv.getScript)
	api.PUT("/listings/:id/script", srv.updateScript)
	api.POST("/listings/:id/script/approve", srv.approveScript)
	api.POST("/listings/:id/script/reject", srv.rejectScript)
	api.POST("/listings/:id/script/revert", srv.revertScript)

	api.POST("/listings/:id/video/approve", srv.approveVideo)
	api.POST("/listings/:id/video/reject", srv.rejectVideo)
	api.POST("/listings/:id/video/publish", srv.publishVideo)

	api.GET("/jobs", srv.listJobs)
	api.GET("/jobs/:id", srv.getJob)
	api.GET("/status", srv.status)

	srv.server = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start binds the listener and serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

// Addr reports the bound listener address. Useful when binding to port 0.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(start)))
	}
}
