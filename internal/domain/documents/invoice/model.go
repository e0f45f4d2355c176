// Package invoice provides the invoice document (Rechnung) and its lifecycle.
package invoice

import (
	"context"
	"time"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/entity"
	"handwerk/internal/core/id"
	"handwerk/internal/domain/documents"
)

// Status of an invoice.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusOpen    Status = "offen"
	StatusSent    Status = "sent"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// transitions lists the allowed moves. overdue is only reached through the
// time-based sweep, paid is terminal.
var transitions = map[Status][]Status{
	StatusDraft:   {StatusOpen, StatusSent},
	StatusOpen:    {StatusSent, StatusPaid, StatusOverdue},
	StatusSent:    {StatusPaid, StatusOverdue},
	StatusOverdue: {StatusPaid},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusOpen, StatusSent, StatusPaid, StatusOverdue:
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
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusOpen || s == StatusSent
}

// Invoice is a customer invoice. Unit prices are gross.
type Invoice struct {
	entity.Document
	documents.CustomerRef
	documents.ProjectRef
	documents.Body

	Status  Status    `db:"status" json:"status"`
	DueDate time.Time `db:"due_date" json:"dueDate"`

	// Source quote, when created by conversion
	QuoteID     *id.ID `db:"quote_id" json:"quoteId,omitempty"`
	QuoteNumber string `db:"quote_number" json:"quoteNumber,omitempty"`

	SentAt    *time.Time `db:"sent_at" json:"sentAt,omitempty"`
	PaidAt    *time.Time `db:"paid_at" json:"paidAt,omitempty"`
	OverdueAt *time.Time `db:"overdue_at" json:"overdueAt,omitempty"`
}

// New creates a standalone invoice in status offen (or draft) due after dueDays.
func New(draft bool, dueDays int) *Invoice {
	inv := &Invoice{
		Document: entity.NewDocument(),
		Body:     documents.NewBody(),
		Status:   StatusOpen,
	}
	if draft {
		inv.Status = StatusDraft
	}
	inv.DueDate = inv.Date.AddDate(0, 0, dueDays)
	return inv
}

// QuoteSource carries what an invoice takes over from an accepted quote.
type QuoteSource struct {
	QuoteID     id.ID
	QuoteNumber string
	Customer    documents.CustomerRef
	Project     documents.ProjectRef
	Body        documents.Body
}

// NewFromQuote creates an invoice in status offen from an accepted quote.
// Items are copied; the quote keeps its own.
func NewFromQuote(src QuoteSource, date time.Time, dueDays int) *Invoice {
	quoteID := src.QuoteID
	inv := &Invoice{
		Document:    entity.NewDocument(),
		CustomerRef: src.Customer,
		ProjectRef:  src.Project,
		Body: documents.Body{
			Items:   src.Body.Items.Clone(),
			TaxRate: src.Body.TaxRate,
			Totals:  src.Body.Totals,
		},
		Status:      StatusOpen,
		QuoteID:     &quoteID,
		QuoteNumber: src.QuoteNumber,
	}
	for i := range inv.Items {
		inv.Items[i].Source = documents.SourceQuote
	}
	inv.Date = date.UTC().Truncate(24 * time.Hour)
	inv.DueDate = inv.Date.AddDate(0, 0, dueDays)
	return inv
}

// EnsureEditable implements documents.ItemDocument.
func (inv *Invoice) EnsureEditable() error {
	if !inv.Status.Editable() {
		return apperror.NewDocumentNotEditable("invoice", inv.ID.String(), string(inv.Status))
	}
	return nil
}

// Validate implements entity.Validatable.
func (inv *Invoice) Validate(ctx context.Context) error {
	if err := inv.Document.Validate(ctx); err != nil {
		return err
	}
	if !inv.Status.Valid() {
		return apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(inv.Status))
	}
	if err := inv.TaxRate.Validate(); err != nil {
		return err
	}
	if inv.DueDate.Before(inv.Date) {
		return apperror.NewValidation("due date before invoice date").
			WithDetail("field", "dueDate")
	}
	for i, item := range inv.Items {
		if err := item.Validate(); err != nil {
			if ae, ok := apperror.AsAppError(err); ok {
				return ae.WithDetail("lineNo", i+1)
			}
			return err
		}
	}
	return nil
}

func (inv *Invoice) move(to Status) error {
	if !CanTransition(inv.Status, to) {
		return apperror.NewIllegalTransition("invoice", string(inv.Status), string(to))
	}
	inv.Status = to
	return nil
}

// Issue finalizes a draft: draft -> offen.
func (inv *Invoice) Issue() error {
	return inv.move(StatusOpen)
}

// MarkSent records that the invoice went out.
func (inv *Invoice) MarkSent(at time.Time) error {
	if err := inv.move(StatusSent); err != nil {
		return err
	}
	t := at.UTC()
	inv.SentAt = &t
	return nil
}

// MarkPaid records payment.
func (inv *Invoice) MarkPaid(at time.Time) error {
	if err := inv.move(StatusPaid); err != nil {
		return err
	}
	t := at.UTC()
	inv.PaidAt = &t
	return nil
}

// MarkOverdue flags an unpaid invoice past its due date. Before the due
// date has passed the transition is illegal.
func (inv *Invoice) MarkOverdue(at time.Time) error {
	if CanTransition(inv.Status, StatusOverdue) && !inv.IsPastDue(at) {
		return apperror.NewIllegalTransition("invoice", string(inv.Status), string(StatusOverdue)).
			WithDetail("dueDate", inv.DueDate.Format(time.DateOnly))
	}
	if err := inv.move(StatusOverdue); err != nil {
		return err
	}
	t := at.UTC()
	inv.OverdueAt = &t
	return nil
}

// IsPastDue reports whether the due date lies before the day of now.
func (inv *Invoice) IsPastDue(now time.Time) bool {
	today := now.UTC().Truncate(24 * time.Hour)
	return inv.DueDate.Before(today)
}
