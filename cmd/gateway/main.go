// Package main is the entry point for the BLT edge gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/owasp-blt/blt-gateway/internal/admin"
	"github.com/owasp-blt/blt-gateway/internal/auth"
	"github.com/owasp-blt/blt-gateway/internal/cache"
	"github.com/owasp-blt/blt-gateway/internal/config"
	"github.com/owasp-blt/blt-gateway/internal/email"
	"github.com/owasp-blt/blt-gateway/internal/gateway"
	"github.com/owasp-blt/blt-gateway/internal/handlers"
	"github.com/owasp-blt/blt-gateway/internal/observability"
	"github.com/owasp-blt/blt-gateway/internal/store"
	"github.com/owasp-blt/blt-gateway/internal/upstream"
)

// Version information (set at build time).
var (
	version   = "dev"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		fmt.Printf("blt-gateway version %s (commit %s)\n", version, gitCommit)
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()
	observability.SetGlobalLogger(logger)

	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		logger.Fatal("failed to load configuration",
			observability.String("path", flags.configPath),
			observability.Error(err))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("gateway failed", observability.Error(err))
	}
}

func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("GATEWAY_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("GATEWAY_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("GATEWAY_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func run(cfg *config.GatewayConfig, logger observability.Logger) error {
	metrics := observability.NewMetrics("gateway")
	metrics.SetBuildInfo(version, gitCommit)

	upstreamClient, err := upstream.NewClient(cfg.Upstream,
		upstream.WithLogger(logger),
		upstream.WithMetrics(metrics))
	if err != nil {
		return err
	}

	responseCache, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer func() { _ = responseCache.Close() }()

	var tokens *auth.TokenIssuer
	if cfg.Auth.TokenSecret != "" {
		tokens, err = auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenIssuer,
			auth.WithTokenTTL(cfg.Auth.TokenTTL))
		if err != nil {
			return err
		}
	} else {
		logger.Warn("auth.tokenSecret not set, signin is disabled")
	}

	sender, err := email.New(cfg.Email, logger)
	if err != nil {
		return err
	}

	srv, err := gateway.New(cfg, handlers.Deps{
		Store:      store.NewMemoryStore(),
		Users:      store.NewMemoryUserStore(),
		Upstream:   upstreamClient,
		Cache:      responseCache,
		Tokens:     tokens,
		Mail:       sender,
		Logger:     logger,
		VerifyBase: cfg.Auth.VerifyBase,
	}, metrics)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Start() }()

	var adminSrv *admin.Server
	if cfg.Admin.Enabled {
		adminSrv = admin.New(cfg.Admin.Address, metrics,
			admin.BuildInfo{Version: version, Commit: gitCommit},
			nil, logger)
		go func() { errCh <- adminSrv.Start() }()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("signal received, shutting down",
			observability.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if adminSrv != nil {
		if err := adminSrv.Shutdown(ctx); err != nil {
			logger.Error("admin shutdown failed", observability.Error(err))
		}
	}
	return srv.Shutdown(ctx)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
