// Package metrics exposes Prometheus counters for document lifecycle events
// and HTTP latency.
package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain"
)

// Metrics holds the registered collectors. It implements domain.Observer.
type Metrics struct {
	documentsCreated *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	conversions      prometheus.Counter
	failures         *prometheus.CounterVec
	overdueMarked    prometheus.Counter
	outboxRelayed    *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		documentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "handwerk_documents_created_total",
			Help: "Documents created, by aggregate type.",
		}, []string{"type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "handwerk_status_transitions_total",
			Help: "Committed status transitions, by aggregate type and event.",
		}, []string{"type", "event"}),
		conversions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "handwerk_quote_conversions_total",
			Help: "Quotes converted into invoices.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "handwerk_operation_failures_total",
			Help: "Failed lifecycle operations, by operation and error code.",
		}, []string{"operation", "code"}),
		overdueMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "handwerk_invoices_marked_overdue_total",
			Help: "Invoices marked overdue by the sweep or manually.",
		}),
		outboxRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "handwerk_outbox_relayed_total",
			Help: "Outbox relay batches, by result.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "handwerk_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.documentsCreated,
		m.transitions,
		m.conversions,
		m.failures,
		m.overdueMarked,
		m.outboxRelayed,
		m.httpDuration,
	)
	return m
}

// Committed implements domain.Observer.
func (m *Metrics) Committed(ctx context.Context, event domain.Event) {
	switch {
	case strings.HasSuffix(event.EventType, "Created"):
		m.documentsCreated.WithLabelValues(event.AggregateType).Inc()
		return
	case event.EventType == domain.EventQuoteInvoiced:
		m.conversions.Inc()
	case event.EventType == domain.EventInvoiceOverdue:
		m.overdueMarked.Inc()
	}
	m.transitions.WithLabelValues(event.AggregateType, event.EventType).Inc()
}

// Failed implements domain.Observer.
func (m *Metrics) Failed(ctx context.Context, operation string, err error) {
	code := apperror.CodeInternal
	if appErr, ok := apperror.AsAppError(err); ok {
		code = appErr.Code
	}
	m.failures.WithLabelValues(operation, code).Inc()
}

// RelayBatch records one outbox relay run.
func (m *Metrics) RelayBatch(processed int, err error) {
	switch {
	case err != nil:
		m.outboxRelayed.WithLabelValues("error").Inc()
	case processed == 0:
		m.outboxRelayed.WithLabelValues("empty").Inc()
	default:
		m.outboxRelayed.WithLabelValues("published").Add(float64(processed))
	}
}

// ObserveHTTP records the latency of one request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, statusClass(status)).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var _ domain.Observer = (*Metrics)(nil)
