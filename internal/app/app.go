// Package app assembles services and infrastructure from configuration.
// The server, the worker and handwerkctl share it.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"handwerk/internal/config"
	"handwerk/internal/core/id"
	"handwerk/internal/core/numerator"
	"handwerk/internal/core/tx"
	"handwerk/internal/domain"
	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/domain/documents/invoice"
	"handwerk/internal/domain/documents/quote"
	"handwerk/internal/domain/files"
	"handwerk/internal/domain/finance"
	"handwerk/internal/infrastructure/http/v1/handlers"
	"handwerk/internal/infrastructure/lock"
	"handwerk/internal/infrastructure/metrics"
	"handwerk/internal/infrastructure/migration"
	numeratorimpl "handwerk/internal/infrastructure/numerator"
	"handwerk/internal/infrastructure/storage/localfs"
	"handwerk/internal/infrastructure/storage/memory"
	"handwerk/internal/infrastructure/storage/postgres"
	"handwerk/internal/infrastructure/storage/postgres/catalog_repo"
	"handwerk/internal/infrastructure/storage/postgres/document_repo"
	"handwerk/internal/infrastructure/storage/postgres/finance_repo"
	"handwerk/pkg/logger"
)

// lockPrefix namespaces Redis lock keys.
const lockPrefix = "handwerk:lock:"

// App holds the assembled services.
type App struct {
	Log      *logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Pool is nil when running on the in-memory store
	Pool  *postgres.Pool
	Redis *redis.Client

	TxManager tx.Manager
	Articles  *article.Service
	Quotes    *quote.Service
	Invoices  *invoice.Service
	Finance   *finance.Service

	Files   files.Storage
	Reader  files.Reader
	History handlers.HistoryReader

	// Relay is nil when running on the in-memory store
	Relay *postgres.OutboxRelay

	config  atomic.Pointer[config.Config]
	closers []func()
}

// Options tunes New.
type Options struct {
	// SkipMigrations leaves the schema alone even when postgres.migrate is set
	SkipMigrations bool

	// RelayHandler receives outbox messages. Defaults to postgres.LogHandler.
	RelayHandler postgres.OutboxHandler

	// RelayBatchSize defaults to 100
	RelayBatchSize int
}

// New connects to the configured backends and builds every service.
// Without postgres.dsn the services run on the in-memory store.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	a := &App{Log: log, Registry: prometheus.NewRegistry()}
	a.config.Store(cfg)
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	var (
		locker domain.Locker
		err    error
	)
	if locker, err = a.connectRedis(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Postgres.DSN == "" {
		log.Warn("postgres.dsn is empty, using the in-memory store")
		a.buildMemory(cfg, locker)
		return a, nil
	}
	if err := a.buildPostgres(ctx, cfg, locker, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connectRedis(ctx context.Context, cfg *config.Config) (domain.Locker, error) {
	if cfg.Redis.Addr == "" {
		a.Log.Info("redis.addr is empty, conversion locks are process-local")
		return lock.NewLocal(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
	}
	a.Redis = client
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.Log.Infow("redis connection established", "addr", cfg.Redis.Addr)
	return lock.NewRedisLocker(client, lockPrefix), nil
}

func (a *App) buildMemory(cfg *config.Config, locker domain.Locker) {
	store := memory.New()
	fileStore := memory.NewFileStore(cfg.Files.BaseURL)

	a.TxManager = store
	a.Files = fileStore
	a.Reader = fileStore
	a.History = memoryHistory{store: store}
	a.wire(cfg, wiring{
		articles:     store.Articles(),
		quotes:       store.Quotes(),
		invoices:     store.Invoices(),
		transactions: store.Transactions(),
		numbers:      store.Numbers(),
		events:       store.Outbox(),
		audit:        store.Audit(),
		locker:       locker,
	})
}

func (a *App) buildPostgres(ctx context.Context, cfg *config.Config, locker domain.Locker, opts Options) error {
	poolCfg := postgres.DefaultPoolConfig(cfg.Postgres.DSN).
		WithLimits(cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	a.Pool = pool
	a.Registry.MustRegister(postgres.NewStatsCollector(pool))
	a.closers = append(a.closers, pool.Close)

	if cfg.Postgres.Migrate && !opts.SkipMigrations {
		db := migration.OpenDB(pool.Pool)
		err := migration.Up(db)
		_ = db.Close()
		if err != nil {
			return err
		}
		a.Log.Info("database migrations applied")
	}

	txm := postgres.NewTxManager(pool)
	a.TxManager = txm

	audit, err := postgres.NewAuditService(txm)
	if err != nil {
		return fmt.Errorf("create audit service: %w", err)
	}
	a.History = audit

	switch cfg.Files.Backend {
	case config.FilesLocal:
		store, err := localfs.New(cfg.Files.LocalRoot, cfg.Files.BaseURL)
		if err != nil {
			return fmt.Errorf("open file storage: %w", err)
		}
		a.Files, a.Reader = store, store
	default:
		store, err := postgres.NewFileStore(pool, cfg.Files.BaseURL)
		if err != nil {
			return fmt.Errorf("open file storage: %w", err)
		}
		a.Files, a.Reader = store, store
	}

	handler := opts.RelayHandler
	if handler == nil {
		handler = postgres.LogHandler()
	}
	batch := opts.RelayBatchSize
	if batch <= 0 {
		batch = 100
	}
	a.Relay = postgres.NewOutboxRelay(txm, batch, handler)

	a.wire(cfg, wiring{
		articles:     catalog_repo.NewArticleRepo(txm),
		quotes:       document_repo.NewQuoteRepo(txm),
		invoices:     document_repo.NewInvoiceRepo(txm),
		transactions: finance_repo.NewTransactionRepo(txm),
		numbers:      numeratorimpl.New(txm),
		events:       postgres.NewOutboxPublisher(txm),
		audit:        audit,
		locker:       locker,
	})
	return nil
}

type wiring struct {
	articles     article.Repository
	quotes       quote.Repository
	invoices     invoice.Repository
	transactions finance.Repository
	numbers      numerator.Generator
	events       domain.EventPublisher
	audit        domain.AuditRecorder
	locker       domain.Locker
}

func (a *App) wire(cfg *config.Config, w wiring) {
	a.Articles = article.NewService(w.articles, w.numbers, a.TxManager)
	a.Articles.SetThresholds(cfg.Thresholds())

	a.Invoices = invoice.NewService(invoice.Deps{
		Repo:      w.invoices,
		Numerator: w.numbers,
		TxManager: a.TxManager,
		Articles:  a.Articles,
		Events:    w.events,
		Audit:     w.audit,
		Observer:  a.Metrics,
	}, invoiceConfig(cfg))

	a.Quotes = quote.NewService(quote.Deps{
		Repo:      w.quotes,
		Invoices:  a.Invoices,
		Numerator: w.numbers,
		TxManager: a.TxManager,
		Files:     a.Files,
		Locker:    w.locker,
		Articles:  a.Articles,
		Events:    w.events,
		Audit:     w.audit,
		Observer:  a.Metrics,
	}, quoteConfig(cfg))

	a.Finance = finance.NewService(w.transactions, a.TxManager, w.audit, a.Files)
}

func invoiceConfig(cfg *config.Config) invoice.Config {
	return invoice.Config{DueDays: cfg.Invoice.DueDays, Numbering: cfg.NumberingOptions()}
}

func quoteConfig(cfg *config.Config) quote.Config {
	c := quote.DefaultConfig()
	c.Numbering = cfg.NumberingOptions()
	if cfg.Redis.LockTTL > 0 {
		c.ConvertLockTTL = cfg.Redis.LockTTL
	}
	return c
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	return a.config.Load()
}

// Apply hands runtime-changeable settings to the services: pricing
// thresholds, payment term, numbering strategy and company bank details.
// Connection settings need a restart.
func (a *App) Apply(cfg *config.Config) {
	a.config.Store(cfg)
	a.Log.SetLevel(cfg.Log.Level)
	a.Articles.SetThresholds(cfg.Thresholds())
	a.Invoices.SetConfig(invoiceConfig(cfg))
	a.Quotes.SetConfig(quoteConfig(cfg))
	a.Log.Infow("configuration reloaded",
		"due_days", cfg.Invoice.DueDays,
		"numbering", cfg.Numbering.Strategy,
		"good_percent", cfg.Pricing.GoodPercent,
		"bad_percent", cfg.Pricing.BadPercent,
		"log_level", a.Log.Level(),
	)
}

// Payee returns the company bank details for GiroCodes.
func (a *App) Payee() invoice.Payee {
	c := a.Config().Company
	return invoice.Payee{Name: c.Name, IBAN: c.IBAN, BIC: c.BIC}
}

// HealthChecks returns the dependencies probed by /health/ready.
func (a *App) HealthChecks() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{}
	if a.Pool != nil {
		checks["postgres"] = a.Pool
	}
	if a.Redis != nil {
		checks["redis"] = redisPinger{a.Redis}
	}
	return checks
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// ErrNoDatabase is returned by operations that need PostgreSQL.
var ErrNoDatabase = errors.New("operation requires postgres.dsn")

// RunRelay processes outbox batches until ctx is done.
func (a *App) RunRelay(ctx context.Context, interval time.Duration) error {
	if a.Relay == nil {
		return ErrNoDatabase
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for {
			n, err := a.Relay.ProcessBatch(ctx)
			a.Metrics.RelayBatch(n, err)
			if err != nil {
				a.Log.Warnw("outbox batch failed", "error", err)
			}
			if err != nil || n == 0 {
				break
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

type memoryHistory struct {
	store *memory.Store
}

func (h memoryHistory) History(_ context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error) {
	var out []postgres.AuditEntry
	rows := h.store.AuditLog()
	for i := len(rows) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		e := rows[i]
		if e.EntityType != entityType || e.EntityID != entityID {
			continue
		}
		changes, err := marshalChanges(e.Changes)
		if err != nil {
			return nil, err
		}
		out = append(out, postgres.AuditEntry{
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Action:     e.Action,
			Actor:      e.Actor,
			Changes:    changes,
			CreatedAt:  e.At,
		})
	}
	return out, nil
}

func marshalChanges(changes map[string]any) (json.RawMessage, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	return json.Marshal(changes)
}
