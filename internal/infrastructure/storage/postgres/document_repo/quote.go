package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"handwerk/internal/domain"
	"handwerk/internal/domain/documents/quote"
	"handwerk/internal/infrastructure/storage/postgres"
)

const (
	quoteTable      = "docs_quotes"
	quoteItemsTable = "docs_quote_items"
)

// QuoteRepo implements quote.Repository.
type QuoteRepo struct {
	*BaseDocumentRepo[*quote.Quote]
}

// NewQuoteRepo creates a new quote repository.
func NewQuoteRepo(txm *postgres.TxManager) *QuoteRepo {
	return &QuoteRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			quoteTable,
			quoteItemsTable,
			postgres.ExtractDBColumns[quote.Quote](),
			func() *quote.Quote { return &quote.Quote{} },
		),
	}
}

// List retrieves quotes with filtering.
func (r *QuoteRepo) List(ctx context.Context, f quote.ListFilter) (domain.ListResult[*quote.Quote], error) {
	return r.BaseDocumentRepo.List(ctx, f.ListFilter, quoteConditions(f)...)
}

func quoteConditions(f quote.ListFilter) []squirrel.Sqlizer {
	var conds []squirrel.Sqlizer
	if len(f.Statuses) > 0 {
		conds = append(conds, squirrel.Eq{"status": f.Statuses})
	}
	if f.CustomerID != "" {
		conds = append(conds, squirrel.Eq{"customer_id": f.CustomerID})
	}
	if f.ProjectID != "" {
		conds = append(conds, squirrel.Eq{"project_id": f.ProjectID})
	}
	return conds
}

var _ quote.Repository = (*QuoteRepo)(nil)
