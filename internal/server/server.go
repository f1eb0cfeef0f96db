package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trafficshield/internal/auth"
	"trafficshield/internal/config"
	"trafficshield/internal/metrics"
	"trafficshield/internal/realtime"
	"trafficshield/internal/resource"
)

// Server is the local HTTP facade over the sync engine. It exposes the
// cached resource families, the action endpoints, the websocket feed
// and the metrics endpoint.
type Server struct {
	cfg     *config.Config
	engine  *resource.Engine
	hub     *realtime.Hub
	metrics *metrics.Collector
	creds   *auth.Credentials
	logger  *zap.Logger
	version string

	httpServer *http.Server
}

// NewServer wires the facade around an already-constructed engine.
func NewServer(cfg *config.Config, engine *resource.Engine, hub *realtime.Hub, m *metrics.Collector, creds *auth.Credentials, version string, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		engine:  engine,
		hub:     hub,
		metrics: m,
		creds:   creds,
		logger:  logger,
		version: version,
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())

	s.RegisterRoutes(router)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// Start begins serving HTTP requests. It blocks until the listener fails
// or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP facade listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener, draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", c.Writer.Status()))
			return
		}
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()))
	}
}
