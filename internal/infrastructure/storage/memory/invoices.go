package memory

import (
	"context"
	"time"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/domain"
	"handwerk/internal/domain/documents"
	"handwerk/internal/domain/documents/invoice"
)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	s *Store
}

// Invoices returns the invoice repository of the store.
func (s *Store) Invoices() *InvoiceRepo {
	return &InvoiceRepo{s: s}
}

func storedInvoice(doc *invoice.Invoice) invoice.Invoice {
	inv := *doc
	inv.Items = nil
	return inv
}

func (r *InvoiceRepo) Create(ctx context.Context, doc *invoice.Invoice) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("invoice.create"); err != nil {
			return err
		}
		if _, ok := st.invoices[doc.ID]; ok {
			return apperror.NewDuplicate("invoice", "id", doc.ID.String())
		}
		for _, inv := range st.invoices {
			if inv.Number == doc.Number {
				return apperror.NewDuplicate("invoice", "number", doc.Number)
			}
		}
		doc.Version = 1
		st.invoices[doc.ID] = storedInvoice(doc)
		return nil
	})
}

func (r *InvoiceRepo) get(ctx context.Context, docID id.ID) (*invoice.Invoice, error) {
	var out *invoice.Invoice
	err := r.s.view(ctx, func(st *state) error {
		inv, ok := st.invoices[docID]
		if !ok {
			return apperror.NewNotFound("docs_invoices", docID.String())
		}
		out = &inv
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) GetByID(ctx context.Context, docID id.ID) (*invoice.Invoice, error) {
	return r.get(ctx, docID)
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, docID id.ID) (*invoice.Invoice, error) {
	return r.get(ctx, docID)
}

func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	var out *invoice.Invoice
	err := r.s.view(ctx, func(st *state) error {
		for _, inv := range st.invoices {
			if inv.Number == number {
				inv := inv
				out = &inv
				return nil
			}
		}
		return apperror.NewNotFound("docs_invoices", number)
	})
	return out, err
}

func (r *InvoiceRepo) Update(ctx context.Context, doc *invoice.Invoice) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("invoice.update"); err != nil {
			return err
		}
		cur, ok := st.invoices[doc.ID]
		if !ok || cur.Version != doc.Version {
			return apperror.NewConcurrentModification("docs_invoices", doc.ID)
		}
		doc.Version++
		st.invoices[doc.ID] = storedInvoice(doc)
		return nil
	})
}

func (r *InvoiceRepo) Delete(ctx context.Context, docID id.ID) error {
	return r.s.view(ctx, func(st *state) error {
		inv, ok := st.invoices[docID]
		if !ok {
			return apperror.NewNotFound("docs_invoices", docID.String())
		}
		inv.MarkDeleted()
		inv.Version++
		st.invoices[docID] = inv
		return nil
	})
}

func (r *InvoiceRepo) GetLines(ctx context.Context, docID id.ID) (documents.Lines, error) {
	var out documents.Lines
	err := r.s.view(ctx, func(st *state) error {
		out = st.invoiceLines[docID].Clone()
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines documents.Lines) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("invoice.lines"); err != nil {
			return err
		}
		st.invoiceLines[docID] = lines.Clone()
		return nil
	})
}

func (r *InvoiceRepo) List(ctx context.Context, f invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	var rows []*invoice.Invoice
	err := r.s.view(ctx, func(st *state) error {
		for _, inv := range st.invoices {
			if !matchInvoice(inv, f) {
				continue
			}
			inv := inv
			rows = append(rows, &inv)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*invoice.Invoice]{}, err
	}
	if err := sortRows(rows, f.OrderBy, func(inv *invoice.Invoice) orderKey {
		return orderKey{number: inv.Number, date: inv.Date, created: inv.CreatedAt}
	}); err != nil {
		return domain.ListResult[*invoice.Invoice]{}, err
	}
	return page(rows, f.ListFilter), nil
}

func (r *InvoiceRepo) ListDue(ctx context.Context, before time.Time, statuses []invoice.Status) ([]*invoice.Invoice, error) {
	var rows []*invoice.Invoice
	err := r.s.view(ctx, func(st *state) error {
		for _, inv := range st.invoices {
			if inv.DeletionMark || !inv.DueDate.Before(before) || !hasInvoiceStatus(inv.Status, statuses) {
				continue
			}
			inv := inv
			rows = append(rows, &inv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := sortRows(rows, "date", func(inv *invoice.Invoice) orderKey {
		return orderKey{number: inv.Number, date: inv.DueDate}
	}); err != nil {
		return nil, err
	}
	return rows, nil
}

func hasInvoiceStatus(s invoice.Status, statuses []invoice.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

func matchInvoice(inv invoice.Invoice, f invoice.ListFilter) bool {
	if inv.DeletionMark && !f.IncludeDeleted {
		return false
	}
	if !inIDs(inv.ID, f.IDs) || !inDateRange(inv.Date, f.ListFilter) {
		return false
	}
	if !hasInvoiceStatus(inv.Status, f.Statuses) {
		return false
	}
	if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
		return false
	}
	if f.ProjectID != "" && inv.ProjectID != f.ProjectID {
		return false
	}
	if f.QuoteID != nil && (inv.QuoteID == nil || *inv.QuoteID != *f.QuoteID) {
		return false
	}
	if f.Search != "" && !containsFold(inv.Number, f.Search) && !containsFold(inv.CustomerName, f.Search) {
		return false
	}
	return true
}

var _ invoice.Repository = (*InvoiceRepo)(nil)
