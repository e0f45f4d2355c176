package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/domain"
)

func TestCommitted(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.Committed(ctx, domain.Event{AggregateType: "Quote", AggregateID: id.New(), EventType: domain.EventQuoteCreated})
	m.Committed(ctx, domain.Event{AggregateType: "Quote", AggregateID: id.New(), EventType: domain.EventQuoteAccepted})
	m.Committed(ctx, domain.Event{AggregateType: "Quote", AggregateID: id.New(), EventType: domain.EventQuoteInvoiced})
	m.Committed(ctx, domain.Event{AggregateType: "Invoice", AggregateID: id.New(), EventType: domain.EventInvoiceCreated})
	m.Committed(ctx, domain.Event{AggregateType: "Invoice", AggregateID: id.New(), EventType: domain.EventInvoiceOverdue})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsCreated.WithLabelValues("Quote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsCreated.WithLabelValues("Invoice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("Quote", domain.EventQuoteAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.overdueMarked))
	assert.Equal(t, 3, testutil.CollectAndCount(m.transitions))
}

func TestFailed(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.Failed(ctx, domain.EventQuoteInvoiced, apperror.NewPartialConversion("q1", errors.New("commit")))
	m.Failed(ctx, domain.EventQuoteInvoiced, errors.New("connection refused"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(domain.EventQuoteInvoiced, apperror.CodePartialConversion)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(domain.EventQuoteInvoiced, apperror.CodeInternal)))
}

func TestRelayBatchAndHTTP(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RelayBatch(3, nil)
	m.RelayBatch(0, nil)
	m.RelayBatch(0, errors.New("db down"))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.outboxRelayed.WithLabelValues("published")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboxRelayed.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboxRelayed.WithLabelValues("error")))

	m.ObserveHTTP("GET", "/api/v1/quotes/:id", 404, 12*time.Millisecond)
	m.ObserveHTTP("POST", "", 201, time.Millisecond)
	assert.Equal(t, 2, testutil.CollectAndCount(m.httpDuration))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "3xx", statusClass(304))
	assert.Equal(t, "4xx", statusClass(422))
	assert.Equal(t, "5xx", statusClass(502))
}
