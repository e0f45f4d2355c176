package invoice

import (
	"context"
	"time"

	"handwerk/internal/core/id"
	"handwerk/internal/domain"
	"handwerk/internal/domain/documents"
)

// Repository defines persistence for invoices.
type Repository interface {
	Create(ctx context.Context, doc *Invoice) error
	GetByID(ctx context.Context, docID id.ID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	Update(ctx context.Context, doc *Invoice) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) (documents.Lines, error)
	SaveLines(ctx context.Context, docID id.ID, lines documents.Lines) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error)

	// GetForUpdate locks the row until the transaction ends
	GetForUpdate(ctx context.Context, docID id.ID) (*Invoice, error)

	// ListDue returns invoices in the given statuses with due_date before the date
	ListDue(ctx context.Context, before time.Time, statuses []Status) ([]*Invoice, error)
}

// ListFilter for filtering invoices.
type ListFilter struct {
	domain.ListFilter

	Statuses   []Status
	CustomerID string
	ProjectID  string
	QuoteID    *id.ID
}
