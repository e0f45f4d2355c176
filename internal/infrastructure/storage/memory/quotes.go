package memory

import (
	"context"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/domain"
	"handwerk/internal/domain/documents"
	"handwerk/internal/domain/documents/quote"
)

// QuoteRepo implements quote.Repository.
type QuoteRepo struct {
	s *Store
}

// Quotes returns the quote repository of the store.
func (s *Store) Quotes() *QuoteRepo {
	return &QuoteRepo{s: s}
}

func storedQuote(doc *quote.Quote) quote.Quote {
	q := *doc
	q.Items = nil
	return q
}

func (r *QuoteRepo) Create(ctx context.Context, doc *quote.Quote) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("quote.create"); err != nil {
			return err
		}
		if _, ok := st.quotes[doc.ID]; ok {
			return apperror.NewDuplicate("quote", "id", doc.ID.String())
		}
		for _, q := range st.quotes {
			if q.Number == doc.Number {
				return apperror.NewDuplicate("quote", "number", doc.Number)
			}
		}
		doc.Version = 1
		st.quotes[doc.ID] = storedQuote(doc)
		return nil
	})
}

func (r *QuoteRepo) get(ctx context.Context, docID id.ID) (*quote.Quote, error) {
	var out *quote.Quote
	err := r.s.view(ctx, func(st *state) error {
		q, ok := st.quotes[docID]
		if !ok {
			return apperror.NewNotFound("docs_quotes", docID.String())
		}
		out = &q
		return nil
	})
	return out, err
}

func (r *QuoteRepo) GetByID(ctx context.Context, docID id.ID) (*quote.Quote, error) {
	return r.get(ctx, docID)
}

func (r *QuoteRepo) GetForUpdate(ctx context.Context, docID id.ID) (*quote.Quote, error) {
	return r.get(ctx, docID)
}

func (r *QuoteRepo) GetByNumber(ctx context.Context, number string) (*quote.Quote, error) {
	var out *quote.Quote
	err := r.s.view(ctx, func(st *state) error {
		for _, q := range st.quotes {
			if q.Number == number {
				q := q
				out = &q
				return nil
			}
		}
		return apperror.NewNotFound("docs_quotes", number)
	})
	return out, err
}

func (r *QuoteRepo) Update(ctx context.Context, doc *quote.Quote) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("quote.update"); err != nil {
			return err
		}
		cur, ok := st.quotes[doc.ID]
		if !ok || cur.Version != doc.Version {
			return apperror.NewConcurrentModification("docs_quotes", doc.ID)
		}
		doc.Version++
		st.quotes[doc.ID] = storedQuote(doc)
		return nil
	})
}

func (r *QuoteRepo) Delete(ctx context.Context, docID id.ID) error {
	return r.s.view(ctx, func(st *state) error {
		q, ok := st.quotes[docID]
		if !ok {
			return apperror.NewNotFound("docs_quotes", docID.String())
		}
		q.MarkDeleted()
		q.Version++
		st.quotes[docID] = q
		return nil
	})
}

func (r *QuoteRepo) GetLines(ctx context.Context, docID id.ID) (documents.Lines, error) {
	var out documents.Lines
	err := r.s.view(ctx, func(st *state) error {
		out = st.quoteLines[docID].Clone()
		return nil
	})
	return out, err
}

func (r *QuoteRepo) SaveLines(ctx context.Context, docID id.ID, lines documents.Lines) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("quote.lines"); err != nil {
			return err
		}
		st.quoteLines[docID] = lines.Clone()
		return nil
	})
}

func (r *QuoteRepo) List(ctx context.Context, f quote.ListFilter) (domain.ListResult[*quote.Quote], error) {
	var rows []*quote.Quote
	err := r.s.view(ctx, func(st *state) error {
		for _, q := range st.quotes {
			if !matchQuote(q, f) {
				continue
			}
			q := q
			rows = append(rows, &q)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*quote.Quote]{}, err
	}
	if err := sortRows(rows, f.OrderBy, func(q *quote.Quote) orderKey {
		return orderKey{number: q.Number, date: q.Date, created: q.CreatedAt}
	}); err != nil {
		return domain.ListResult[*quote.Quote]{}, err
	}
	return page(rows, f.ListFilter), nil
}

func matchQuote(q quote.Quote, f quote.ListFilter) bool {
	if q.DeletionMark && !f.IncludeDeleted {
		return false
	}
	if !inIDs(q.ID, f.IDs) || !inDateRange(q.Date, f.ListFilter) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if q.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CustomerID != "" && q.CustomerID != f.CustomerID {
		return false
	}
	if f.ProjectID != "" && q.ProjectID != f.ProjectID {
		return false
	}
	if f.Search != "" && !containsFold(q.Number, f.Search) && !containsFold(q.CustomerName, f.Search) {
		return false
	}
	return true
}

var _ quote.Repository = (*QuoteRepo)(nil)
