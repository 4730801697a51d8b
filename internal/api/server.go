// Package api exposes the offspring analyzer over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/abo-offspring-analyzer/internal/batch"
	"github.com/abo-offspring-analyzer/internal/domain"
	"github.com/abo-offspring-analyzer/internal/logging"
	"github.com/abo-offspring-analyzer/internal/middleware"
	"github.com/abo-offspring-analyzer/internal/results"
	"github.com/abo-offspring-analyzer/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Dependencies are the components the HTTP handlers call into.
type Dependencies struct {
	Analyzer *batch.Analyzer
	// Store backs GET /api/v1/results and optional batch persistence.
	// Nil disables both.
	Store results.Store
	// Cache, when set, is reported by the health endpoint.
	Cache *service.CachedEngine
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Dependencies
	router        *gin.Engine
	server        *http.Server
	log           *logrus.Logger
	started       time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()
	if logger == nil {
		logger = logging.Discard()
	}

	if cfg.Logging.Level == logging.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(logger))
	if cfg.Server.RateLimit > 0 {
		router.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, 10*time.Minute)))
	}

	s := &Server{
		configManager: configManager,
		deps:          deps,
		router:        router,
		log:           logger,
		started:       time.Now(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/phenotypes", s.handlePhenotypes)
		v1.GET("/cross", s.handleCrossQuery)
		v1.POST("/cross", s.handleCross)
		v1.POST("/batch", s.handleBatch)
		v1.GET("/results", s.handleResults)
	}
}

// abort writes an APIError response.
func (s *Server) abort(c *gin.Context, status int, code, message string, value interface{}) {
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, value, c.GetString(middleware.CorrelationIDKey)))
}
