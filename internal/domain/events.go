package domain

import (
	"context"
	"time"

	"handwerk/internal/core/id"
)

// Event is a domain event written to the outbox in the same transaction
// as the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher records domain events. Publish must run inside a transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// AuditRecorder writes audit rows for state changes.
type AuditRecorder interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}

// Locker serializes work on one key across processes.
type Locker interface {
	// TryLock returns ok=false without error when the key is held by someone else.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// NopPublisher drops events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// NopAudit drops audit records.
type NopAudit struct{}

// Record implements AuditRecorder.
func (NopAudit) Record(context.Context, string, id.ID, string, map[string]any) error { return nil }

// Observer is notified after a state change was committed, or after an
// operation failed. Metrics hang off this.
type Observer interface {
	Committed(ctx context.Context, event Event)
	Failed(ctx context.Context, operation string, err error)
}

// NopObserver ignores notifications.
type NopObserver struct{}

// Committed implements Observer.
func (NopObserver) Committed(context.Context, Event) {}

// Failed implements Observer.
func (NopObserver) Failed(context.Context, string, error) {}

// Event types.
const (
	EventQuoteCreated   = "QuoteCreated"
	EventQuoteSent      = "QuoteSent"
	EventQuoteAccepted  = "QuoteAccepted"
	EventQuoteDeclined  = "QuoteDeclined"
	EventQuoteInvoiced  = "QuoteInvoiced"
	EventInvoiceCreated = "InvoiceCreated"
	EventInvoiceIssued  = "InvoiceIssued"
	EventInvoiceSent    = "InvoiceSent"
	EventInvoicePaid    = "InvoicePaid"
	EventInvoiceOverdue = "InvoiceOverdue"
)
