package entity

import (
	"context"
	"time"

	"handwerk/internal/core/apperror"
)

// Document is the base type for quotes and invoices.
type Document struct {
	BaseDocument

	// Number is assigned once on creation (AN-2026-0001) and never regenerated
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Comment is an optional office note
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document dated today.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC().Truncate(24 * time.Hour),
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// HasNumber reports whether the final number has been assigned.
func (d *Document) HasNumber() bool {
	return d.Number != ""
}

// AssignNumber sets the number once. Later calls are ignored.
func (d *Document) AssignNumber(number string) {
	if d.Number == "" {
		d.Number = number
	}
}
