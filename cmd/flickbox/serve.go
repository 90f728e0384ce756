// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/flickbox/flickbox/internal/auth"
	authpg "github.com/flickbox/flickbox/internal/auth/postgres"
	"github.com/flickbox/flickbox/internal/config"
	"github.com/flickbox/flickbox/internal/logging"
	"github.com/flickbox/flickbox/internal/observability"
	"github.com/flickbox/flickbox/internal/store"
	"github.com/flickbox/flickbox/internal/web"
	"github.com/flickbox/flickbox/pkg/errutil"
)

const (
	serviceName     = "flickbox"
	shutdownTimeout = 30 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the registration and login API. The server starts even when the
database is unreachable; auth endpoints fail until it comes up and the schema
is created in the background.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	cmd.Flags().Int("port", defaults.HTTP.Port, "HTTP listen port")
	cmd.Flags().String("frontend-url", defaults.HTTP.FrontendURL, "allowed CORS origin")
	cmd.Flags().String("metrics-addr", defaults.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaults.Log.Format, "log format (json or text)")
	cmd.Flags().String("env", defaults.App.Environment, "environment name; production hides error detail")

	return cmd
}

// runServeWithDeps starts the API with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = func(ctx context.Context, cfg store.PoolConfig) (Pool, error) {
			return store.NewPool(ctx, cfg)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, gatherer prometheus.Gatherer, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, gatherer, ready, slog.Default())
		}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}

	cfg, err := config.Load(config.ResolvePath(configFile), cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	level, _ := logging.ParseLevel(cfg.Log.Level) //nolint:errcheck // checked by Validate
	logger := logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  deps.LogWriter,
	})

	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	logger.Info("starting flickbox",
		"port", cfg.HTTP.Port,
		"environment", cfg.App.Environment,
		"frontend_url", cfg.HTTP.FrontendURL,
		"hasher", cfg.Auth.Hasher,
	)

	// Pool construction does not dial; an unreachable database surfaces in
	// the bootstrap and in request handling instead.
	pool, err := deps.PoolFactory(ctx, store.PoolConfig{
		DSN:            cfg.DatabaseDSN(),
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return oops.With("operation", "create database pool").Wrap(err)
	}
	defer pool.Close()

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	hasher, err := auth.NewHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	service, err := auth.NewService(
		authpg.NewAccountRepository(pool, cfg.Database.QueryTimeout),
		hasher,
		auth.WithLogger(logger),
		auth.WithOutcomeRecorder(metrics),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bootstrap := store.NewBootstrap(pool, store.WithBootstrapLogger(logger))
	if err := bootstrap.Start(ctx); err != nil {
		cmd.PrintErrln("Warning: could not create the database schema at startup.")
		cmd.PrintErrln("The server will still start, but /register and /login fail until the database is reachable.")
	}
	defer func() {
		cancel()
		bootstrap.Wait()
	}()

	webServer, err := web.NewServer(service, web.Config{
		FrontendURL: cfg.HTTP.FrontendURL,
		Production:  cfg.IsProduction(),
	},
		web.WithLogger(logger),
		web.WithObserver(metrics),
		web.WithHealth(pool, bootstrap.Ready),
	)
	if err != nil {
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.ListenAddr())
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.ListenAddr()).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           webServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, registry, bootstrap.Ready)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if stopErr := httpServer.Shutdown(shutdownCtx); stopErr != nil {
				logger.Warn("failed to stop HTTP server during cleanup", "error", stopErr)
			}
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
	}

	addr := listener.Addr().String()
	cmd.Printf("Flickbox API listening on %s\n", addr)
	logger.Info("http server listening", "addr", addr)
	if deps.OnListening != nil {
		deps.OnListening(addr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case serveErr = <-errChan:
		errutil.LogError(logger, "http server error", serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping HTTP server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}
	cancel()

	if serveErr != nil {
		return oops.Code("HTTP_SERVE_FAILED").Wrap(serveErr)
	}
	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when a server reports a failure. It exits
// when an error arrives, the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			errutil.LogError(logger, "server error, triggering shutdown", err, "server", serverName)
			cancel()
		}
	case <-ctx.Done():
	}
}
