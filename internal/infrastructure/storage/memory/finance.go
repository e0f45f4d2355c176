package memory

import (
	"context"
	"time"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/domain"
	"handwerk/internal/domain/finance"
)

// FinanceRepo implements finance.Repository.
type FinanceRepo struct {
	s *Store
}

// Transactions returns the finance repository of the store.
func (s *Store) Transactions() *FinanceRepo {
	return &FinanceRepo{s: s}
}

func (r *FinanceRepo) Create(ctx context.Context, t *finance.Transaction) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("finance.create"); err != nil {
			return err
		}
		t.Version = 1
		st.transactions[t.ID] = *t
		return nil
	})
}

func (r *FinanceRepo) GetByID(ctx context.Context, txID id.ID) (*finance.Transaction, error) {
	var out *finance.Transaction
	err := r.s.view(ctx, func(st *state) error {
		t, ok := st.transactions[txID]
		if !ok || t.DeletionMark {
			return apperror.NewNotFound("fin_transactions", txID.String())
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *FinanceRepo) Update(ctx context.Context, t *finance.Transaction) error {
	return r.s.view(ctx, func(st *state) error {
		cur, ok := st.transactions[t.ID]
		if !ok || cur.Version != t.Version {
			return apperror.NewConcurrentModification("fin_transactions", t.ID)
		}
		t.Version++
		st.transactions[t.ID] = *t
		return nil
	})
}

func (r *FinanceRepo) Delete(ctx context.Context, txID id.ID) error {
	return r.s.view(ctx, func(st *state) error {
		t, ok := st.transactions[txID]
		if !ok {
			return apperror.NewNotFound("fin_transactions", txID.String())
		}
		t.MarkDeleted()
		t.Version++
		st.transactions[txID] = t
		return nil
	})
}

func (r *FinanceRepo) List(ctx context.Context, f finance.ListFilter) (domain.ListResult[*finance.Transaction], error) {
	var rows []*finance.Transaction
	err := r.s.view(ctx, func(st *state) error {
		for _, t := range st.transactions {
			if t.DeletionMark && !f.IncludeDeleted {
				continue
			}
			if !inIDs(t.ID, f.IDs) || !inDateRange(t.Date, f.ListFilter) {
				continue
			}
			if len(f.Types) > 0 && !hasType(t.Type, f.Types) {
				continue
			}
			if f.Category != "" && t.Category != f.Category {
				continue
			}
			if f.ProjectID != "" && (t.ProjectID == nil || *t.ProjectID != f.ProjectID) {
				continue
			}
			if f.Search != "" && !containsFold(t.Description, f.Search) {
				continue
			}
			t := t
			rows = append(rows, &t)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*finance.Transaction]{}, err
	}
	if err := sortRows(rows, f.OrderBy, func(t *finance.Transaction) orderKey {
		return orderKey{date: t.Date, created: t.CreatedAt}
	}); err != nil {
		return domain.ListResult[*finance.Transaction]{}, err
	}
	return page(rows, f.ListFilter), nil
}

func (r *FinanceRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*finance.Transaction, error) {
	var rows []*finance.Transaction
	err := r.s.view(ctx, func(st *state) error {
		for _, t := range st.transactions {
			if t.DeletionMark || t.Date.Before(from) || t.Date.After(to) {
				continue
			}
			t := t
			rows = append(rows, &t)
		}
		return nil
	})
	return rows, err
}

func hasType(t finance.Type, types []finance.Type) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

var _ finance.Repository = (*FinanceRepo)(nil)
