// Package main is the entry point for the handwerk background worker.
// It relays outbox events and marks invoices overdue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"handwerk/internal/app"
	"handwerk/internal/config"
	"handwerk/internal/infrastructure/storage/postgres"
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

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development || cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting handwerk worker")

	// Schema changes are left to the server and handwerkctl
	application, err := app.New(ctx, cfg, log, app.Options{SkipMigrations: true})
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer application.Close()
	if application.Pool == nil {
		log.Fatalw("worker requires postgres", "error", app.ErrNoDatabase)
	}

	config.Watch(v, application.Apply, func(err error) {
		log.Warnw("ignoring invalid configuration change", "error", err)
	})

	worker := NewWorker(application, log, DefaultSchedule())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Schedule holds the job intervals.
type Schedule struct {
	Relay       time.Duration
	Sweep       time.Duration
	Purge       time.Duration
	PurgeAge    time.Duration
	PoolStats   time.Duration
	SweepOnBoot bool
}

// DefaultSchedule relays twice a second, sweeps hourly and purges daily.
func DefaultSchedule() Schedule {
	return Schedule{
		Relay:       500 * time.Millisecond,
		Sweep:       time.Hour,
		Purge:       24 * time.Hour,
		PurgeAge:    7 * 24 * time.Hour,
		PoolStats:   5 * time.Minute,
		SweepOnBoot: true,
	}
}

// Worker runs the periodic jobs.
type Worker struct {
	app      *app.App
	log      *logger.Logger
	schedule Schedule
}

// NewWorker creates a worker.
func NewWorker(a *app.App, log *logger.Logger, schedule Schedule) *Worker {
	return &Worker{
		app:      a,
		log:      log.WithComponent("worker"),
		schedule: schedule,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.app.RunRelay(ctx, w.schedule.Relay); err != nil {
			w.log.Errorw("outbox relay stopped", "error", err)
		}
	}()

	if w.schedule.SweepOnBoot {
		w.sweep(ctx)
	}

	sweepTicker := time.NewTicker(w.schedule.Sweep)
	defer sweepTicker.Stop()
	purgeTicker := time.NewTicker(w.schedule.Purge)
	defer purgeTicker.Stop()
	statsTicker := time.NewTicker(w.schedule.PoolStats)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-sweepTicker.C:
			w.sweep(ctx)
		case <-purgeTicker.C:
			w.purge(ctx)
		case <-statsTicker.C:
			postgres.LogPoolStats(ctx, w.app.Pool)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	n, err := w.app.Invoices.SweepOverdue(ctx, time.Now())
	if err != nil {
		w.log.Errorw("overdue sweep failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Infow("invoices marked overdue", "count", n)
	}
}

func (w *Worker) purge(ctx context.Context) {
	n, err := w.app.Relay.Purge(ctx, w.schedule.PurgeAge)
	if err != nil {
		w.log.Errorw("outbox purge failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Infow("purged processed outbox messages", "count", n)
	}
}
