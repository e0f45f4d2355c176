package finance

import (
	"context"
	"time"

	"handwerk/internal/core/id"
	"handwerk/internal/domain"
)

// Repository defines persistence for transactions.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, txID id.ID) (*Transaction, error)
	Update(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, txID id.ID) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transaction], error)

	// ListBetween returns all transactions dated within [from, to]
	ListBetween(ctx context.Context, from, to time.Time) ([]*Transaction, error)
}

// ListFilter for filtering transactions.
type ListFilter struct {
	domain.ListFilter

	Types     []Type
	Category  string
	ProjectID string
}
