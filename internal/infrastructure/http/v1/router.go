// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/domain/documents/invoice"
	"handwerk/internal/domain/documents/quote"
	"handwerk/internal/domain/files"
	"handwerk/internal/domain/finance"
	"handwerk/internal/infrastructure/http/v1/dto"
	"handwerk/internal/infrastructure/http/v1/handlers"
	"handwerk/internal/infrastructure/http/v1/middleware"
	"handwerk/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Development enables gin debug mode
	Development bool

	// Version is reported by the readiness probe
	Version string

	// HealthChecks are pinged by /health/ready
	HealthChecks map[string]handlers.Pinger

	// Metrics records request durations. Nil disables the middleware.
	Metrics middleware.HTTPObserver

	// MetricsPath serves Gatherer when both are set
	MetricsPath string
	Gatherer    prometheus.Gatherer

	Quotes   *quote.Service
	Invoices *invoice.Service
	Articles *article.Service
	Finance  *finance.Service

	// History reads the audit trail. Nil serves empty histories.
	History handlers.HistoryReader

	// Files serves stored objects under /files. Nil disables the route.
	Files files.Reader

	// Payee returns the bank details printed into GiroCodes
	Payee handlers.PayeeFunc
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Actor())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	if cfg.Gatherer != nil && cfg.MetricsPath != "" {
		router.GET(cfg.MetricsPath, gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	baseHandler := handlers.NewBaseHandler()

	if cfg.Files != nil {
		router.GET("/files/*path", handlers.NewFilesHandler(baseHandler, cfg.Files).Get)
	}

	routes := map[string]RouteRegistrar{}
	if cfg.Quotes != nil {
		routes["/quotes"] = handlers.NewQuoteHandler(baseHandler, cfg.Quotes, cfg.History)
	}
	if cfg.Invoices != nil {
		routes["/invoices"] = handlers.NewInvoiceHandler(baseHandler, cfg.Invoices, cfg.History, cfg.Payee)
	}
	if cfg.Articles != nil {
		routes["/articles"] = handlers.NewArticleHandler(baseHandler, cfg.Articles)
		routes["/calc"] = handlers.NewCalcHandler(baseHandler, cfg.Articles)
	} else {
		routes["/calc"] = handlers.NewCalcHandler(baseHandler, nil)
	}
	if cfg.Finance != nil {
		routes["/transactions"] = handlers.NewFinanceHandler(baseHandler, cfg.Finance)
	}
	Mount(router.Group("/api/v1"), routes)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: apperror.CodeNotFound, Message: "route not found"})
	})

	return router
}
