// Package main is the entry point for the handwerk API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"handwerk/internal/app"
	"handwerk/internal/config"
	v1 "handwerk/internal/infrastructure/http/v1"
	"handwerk/internal/infrastructure/telemetry"
	"handwerk/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, v, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development || cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting handwerk server", "version", cfg.App.Version, "env", cfg.App.Env)

	// --- Tracing ---
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Env,
	})
	if err != nil {
		log.Fatalw("failed to set up tracing", "error", err)
	}

	// --- Services ---
	application, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer application.Close()

	config.Watch(v, application.Apply, func(err error) {
		log.Warnw("ignoring invalid configuration change", "error", err)
	})

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Logger:       log,
		Development:  cfg.IsDevelopment(),
		Version:      cfg.App.Version,
		HealthChecks: application.HealthChecks(),
		Quotes:       application.Quotes,
		Invoices:     application.Invoices,
		Articles:     application.Articles,
		Finance:      application.Finance,
		History:      application.History,
		Files:        application.Reader,
		Payee:        application.Payee,
	}
	if cfg.Metrics.Enabled {
		routerCfg.Metrics = application.Metrics
		routerCfg.Gatherer = application.Registry
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful shutdown ---
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Errorw("server failed", "error", err)
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warnw("failed to flush traces", "error", err)
	}

	log.Info("server stopped")
}
