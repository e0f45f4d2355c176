// Package quote provides the quote document (Angebot), its lifecycle and
// the conversion of accepted quotes into invoices.
package quote

import (
	"context"
	"strings"
	"time"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/entity"
	"handwerk/internal/core/id"
	"handwerk/internal/domain/documents"
)

// Status of a quote.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusInvoiced Status = "invoiced"
)

// transitions lists the allowed moves. declined and invoiced are terminal;
// an accepted quote can no longer be declined.
var transitions = map[Status][]Status{
	StatusDraft:    {StatusSent},
	StatusSent:     {StatusAccepted, StatusDeclined},
	StatusAccepted: {StatusInvoiced},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusDeclined, StatusInvoiced:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Editable reports whether items and header may change.
// Accepted quotes are frozen: the customer signed exactly these items.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusSent
}

// Quote is an offer to a customer. Unit prices are gross.
type Quote struct {
	entity.Document
	documents.CustomerRef
	documents.ProjectRef
	documents.Body

	Status Status `db:"status" json:"status"`

	SentAt       *time.Time `db:"sent_at" json:"sentAt,omitempty"`
	SignatureURL *string    `db:"signature_url" json:"signatureUrl,omitempty"`
	AcceptedAt   *time.Time `db:"accepted_at" json:"acceptedAt,omitempty"`
	AcceptedBy   string     `db:"accepted_by" json:"acceptedBy,omitempty"`
	DeclinedAt   *time.Time `db:"declined_at" json:"declinedAt,omitempty"`

	// InvoiceID is set once the quote was converted
	InvoiceID *id.ID `db:"invoice_id" json:"invoiceId,omitempty"`
}

// New creates a draft quote dated today.
func New() *Quote {
	return &Quote{
		Document: entity.NewDocument(),
		Body:     documents.NewBody(),
		Status:   StatusDraft,
	}
}

// EnsureEditable implements documents.ItemDocument.
func (q *Quote) EnsureEditable() error {
	if !q.Status.Editable() {
		return apperror.NewDocumentNotEditable("quote", q.ID.String(), string(q.Status))
	}
	return nil
}

// Validate implements entity.Validatable.
func (q *Quote) Validate(ctx context.Context) error {
	if err := q.Document.Validate(ctx); err != nil {
		return err
	}
	if !q.Status.Valid() {
		return apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(q.Status))
	}
	if err := q.TaxRate.Validate(); err != nil {
		return err
	}
	for i, item := range q.Items {
		if err := item.Validate(); err != nil {
			if ae, ok := apperror.AsAppError(err); ok {
				return ae.WithDetail("lineNo", i+1)
			}
			return err
		}
	}
	return nil
}

func (q *Quote) move(to Status) error {
	if !CanTransition(q.Status, to) {
		return apperror.NewIllegalTransition("quote", string(q.Status), string(to))
	}
	q.Status = to
	return nil
}

// MarkSent moves draft -> sent.
func (q *Quote) MarkSent(at time.Time) error {
	if err := q.move(StatusSent); err != nil {
		return err
	}
	t := at.UTC()
	q.SentAt = &t
	return nil
}

// MarkAccepted moves sent -> accepted. A signature reference is required.
func (q *Quote) MarkAccepted(signatureURL, acceptedBy string, at time.Time) error {
	if !CanTransition(q.Status, StatusAccepted) {
		return apperror.NewIllegalTransition("quote", string(q.Status), string(StatusAccepted))
	}
	if strings.TrimSpace(signatureURL) == "" {
		return apperror.NewValidation("signature is required to accept a quote").
			WithDetail("field", "signature")
	}
	q.Status = StatusAccepted
	q.SignatureURL = &signatureURL
	q.AcceptedBy = acceptedBy
	t := at.UTC()
	q.AcceptedAt = &t
	return nil
}

// MarkDeclined moves sent -> declined.
func (q *Quote) MarkDeclined(at time.Time) error {
	if err := q.move(StatusDeclined); err != nil {
		return err
	}
	t := at.UTC()
	q.DeclinedAt = &t
	return nil
}

// MarkInvoiced moves accepted -> invoiced and links the invoice.
func (q *Quote) MarkInvoiced(invoiceID id.ID) error {
	if err := q.move(StatusInvoiced); err != nil {
		return err
	}
	q.InvoiceID = &invoiceID
	return nil
}
