package article

import (
	"context"

	"handwerk/internal/core/id"
	"handwerk/internal/domain"
)

// Repository defines the interface for article persistence.
// GetByCode looks up the article number.
type Repository interface {
	domain.CatalogRepository[*Article]

	// GetByIDs returns the existing articles among ids; missing ids are skipped.
	GetByIDs(ctx context.Context, ids []id.ID) ([]*Article, error)
}
