package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/theeagle2407/Vigil/internal/monitor"
	"github.com/theeagle2407/Vigil/internal/threat"
	"github.com/theeagle2407/Vigil/internal/version"
)

// Server exposes the monitor and registry over HTTP. It is a thin adapter:
// all decision logic lives in the core.
type Server struct {
	monitor  *monitor.Monitor
	registry *threat.Registry
	logger   zerolog.Logger
	server   *http.Server
	port     int
}

// NewServer wires the core services into an HTTP server.
func NewServer(mon *monitor.Monitor, registry *threat.Registry, port int, logger zerolog.Logger) *Server {
	return &Server{
		monitor:  mon,
		registry: registry,
		logger:   logger.With().Str("component", "api").Logger(),
		port:     port,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/", s.health)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/status", s.getStatus)
		apiGroup.GET("/wallet/:address", s.getWalletProfile)
		apiGroup.POST("/analyze-transaction", s.analyzeTransaction)
		apiGroup.GET("/threats", s.getThreats)
		apiGroup.GET("/audit-trail", s.getAuditTrail)
		apiGroup.POST("/security-rules", s.updateSecurityRules)
		apiGroup.POST("/monitor/:address", s.startMonitoring)
	}

	return router
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Router(),
	}

	s.logger.Info().Int("port", s.port).Msg("api server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "Vigil Security Agent",
		"status":  "active",
		"version": version.Version,
		"message": "Your 24/7 security agent is watching",
	})
}
