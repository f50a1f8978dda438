// Package admin runs the operational status server, kept off the
// public listener: health probes, metrics, and build info.
package admin

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/owasp-blt/blt-gateway/internal/observability"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race
// conditions between servers created in parallel tests.
var ginModeOnce sync.Once

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

// ReadyCheck reports whether the gateway can serve traffic.
type ReadyCheck func(ctx context.Context) error

// Server is the admin/status HTTP server.
type Server struct {
	engine  *gin.Engine
	srv     *http.Server
	logger  observability.Logger
	ready   ReadyCheck
	build   BuildInfo
	started time.Time
}

// New creates an admin server.
func New(address string, metrics *observability.Metrics, build BuildInfo, ready ReadyCheck, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger()
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:  engine,
		logger:  logger,
		ready:   ready,
		build:   build,
		started: time.Now(),
	}

	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/readyz", s.handleReadyz)
	engine.GET("/version", s.handleVersion)
	if metrics != nil {
		engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	s.srv = &http.Server{
		Addr:              address,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Engine exposes the gin engine, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

func (s *Server) handleReadyz(c *gin.Context) {
	if s.ready != nil {
		if err := s.ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": s.build.Version,
		"commit":  s.build.Commit,
	})
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("admin server listening",
		observability.String("address", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the admin listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
