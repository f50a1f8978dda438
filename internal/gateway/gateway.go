// Package gateway assembles the public HTTP listener: router,
// dispatcher, and the middleware chain around them.
package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/owasp-blt/blt-gateway/internal/config"
	"github.com/owasp-blt/blt-gateway/internal/handlers"
	"github.com/owasp-blt/blt-gateway/internal/middleware"
	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/router"
)

// Server is the public gateway listener.
type Server struct {
	cfg    config.ServerConfig
	srv    *http.Server
	logger observability.Logger
}

// New builds the route table, wraps the dispatcher in middleware, and
// returns a ready-to-start Server.
func New(cfg *config.GatewayConfig, deps handlers.Deps, metrics *observability.Metrics) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	r := router.New()
	if err := handlers.Register(r, deps); err != nil {
		return nil, err
	}

	dispatcher := router.NewDispatcher(r, router.WithDispatcherLogger(logger))

	chain := []middleware.Middleware{
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.AccessLog(logger),
		middleware.Metrics(metrics),
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			Rate:  cfg.RateLimit.Rate,
			Burst: cfg.RateLimit.Burst,
		}, metrics)
		chain = append(chain, limiter.Middleware())
	}
	// CORS sits innermost so preflight is still logged and counted.
	chain = append(chain, middleware.CORS(middleware.CORSConfig{
		AllowOrigins: cfg.CORS.AllowedOrigins,
		AllowMethods: cfg.CORS.AllowedMethods,
		AllowHeaders: cfg.CORS.AllowedHeaders,
		MaxAge:       cfg.CORS.MaxAge,
	}))

	handler := middleware.Chain(chain...)(dispatcher)

	return &Server{
		cfg: cfg.Server,
		srv: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		logger: logger,
	}, nil
}

// Handler exposes the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("gateway listening",
		observability.String("address", s.cfg.Address))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gateway shutting down")
	return s.srv.Shutdown(ctx)
}
