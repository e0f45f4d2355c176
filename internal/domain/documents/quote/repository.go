package quote

import (
	"context"

	"handwerk/internal/core/id"
	"handwerk/internal/domain"
	"handwerk/internal/domain/documents"
)

// Repository defines persistence for quotes.
type Repository interface {
	Create(ctx context.Context, doc *Quote) error
	GetByID(ctx context.Context, docID id.ID) (*Quote, error)
	GetByNumber(ctx context.Context, number string) (*Quote, error)
	Update(ctx context.Context, doc *Quote) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) (documents.Lines, error)
	SaveLines(ctx context.Context, docID id.ID, lines documents.Lines) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Quote], error)

	// GetForUpdate locks the row until the transaction ends
	GetForUpdate(ctx context.Context, docID id.ID) (*Quote, error)
}

// ListFilter for filtering quotes.
type ListFilter struct {
	domain.ListFilter

	Statuses   []Status
	CustomerID string
	ProjectID  string
}
