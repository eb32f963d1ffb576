// Package httpapi exposes the pipeline components over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"NewsDigest/internal/ports"
	"NewsDigest/internal/usecase"
)

// Deps wires the HTTP layer to the use cases.
type Deps struct {
	Ingestor      *usecase.Ingestor
	Lifecycle     *usecase.Lifecycle
	Summarizer    *usecase.Summarizer
	Composer      *usecase.Composer
	Distributor   *usecase.Distributor
	Orchestrator  *usecase.Orchestrator
	Registry      *usecase.Registry
	Authenticator ports.Authenticator
	// Health reports whether the store is reachable.
	Health   func(ctx context.Context) error
	Logger   *slog.Logger
	SiteName string
	SiteURL  string
}

// Server owns the gin engine and the underlying http.Server.
type Server struct {
	deps   Deps
	engine *gin.Engine
	logger *slog.Logger
}

// New builds the router. gin's own logger is replaced by a slog middleware.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.SiteName == "" {
		deps.SiteName = "AI Weekly Digest"
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))
	engine.SetHTMLTemplate(pages)

	s := &Server{deps: deps, engine: engine, logger: logger.With("component", "http")}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/confirm", s.confirm)
	s.engine.GET("/unsubscribe", s.unsubscribe)

	api := s.engine.Group("/api")
	api.POST("/subscribers", s.signup)

	authed := api.Group("", authenticate(s.deps.Authenticator))
	{
		authed.POST("/articles/ingest", s.ingest)
		authed.POST("/articles/lifecycle", s.lifecycle)
		authed.POST("/summaries", s.summarize)
		authed.POST("/newsletter/compose", s.compose)
		authed.POST("/newsletter/send", s.send)
		authed.POST("/scheduler/run", s.runScheduler)
		authed.POST("/scheduler/resume", s.resumeScheduler)
	}
}

// Handler returns the router for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
