// Package server provides the HTTP server of the planning API
package server

import (
	"context"
	"net/http"

	"github.com/alchemorsel/vitaplan/internal/infrastructure/config"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/vitaplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/vitaplan/pkg/errors"
	"github.com/alchemorsel/vitaplan/pkg/healthcheck"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups the route handlers mounted under /api/v1
type Handlers struct {
	Planning  *handlers.PlanningHandlers
	Safety    *handlers.SafetyHandlers
	Knowledge *handlers.KnowledgeHandlers
}

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	router  *gin.Engine
	server  *http.Server
	metrics *monitoring.MetricsCollector
	health  *healthcheck.HealthCheck
}

// NewServer creates a new HTTP server instance. metrics may be nil.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	metrics *monitoring.MetricsCollector,
	health *healthcheck.HealthCheck,
	h Handlers,
) *Server {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:  cfg,
		logger:  logger.Named("http-server"),
		metrics: metrics,
		health:  health,
	}
	s.router = s.setupRouter(h)

	s.server = &http.Server{
		Addr:           cfg.Server.Address(),
		Handler:        s.router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s
}

func (s *Server) setupRouter(h Handlers) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(s.config.Server.TrustedProxies); err != nil {
		s.logger.Warn("Invalid trusted proxies", zap.Error(err))
	}

	m := middleware.New(s.config, s.logger)
	r.Use(
		m.RequestID(),
		m.Logger(),
		m.Recovery(),
		m.Security(),
		m.CORS(),
	)
	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware())
	}

	mon := s.config.Monitoring
	if s.health != nil {
		r.GET(mon.HealthCheckPath, s.health.Handler())
		r.GET(mon.ReadinessPath, s.health.ReadinessHandler())
		r.GET(mon.LivenessPath, s.health.LivenessHandler())
	}
	if s.metrics != nil && mon.EnableMetrics {
		r.GET(mon.MetricsPath, gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api/v1", m.RateLimit(), m.ErrorHandler())
	if h.Planning != nil {
		h.Planning.Register(api)
	}
	if h.Safety != nil {
		h.Safety.Register(api)
	}
	if h.Knowledge != nil {
		h.Knowledge.Register(api)
	}

	r.NoRoute(func(c *gin.Context) {
		appErr := errors.NewNotFoundError("route")
		c.JSON(appErr.StatusCode(), errors.ToErrorResponse(appErr, c.GetString(middleware.RequestIDKey)))
	})

	return r
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving and blocks until the server stops
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.config.App.Environment),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
