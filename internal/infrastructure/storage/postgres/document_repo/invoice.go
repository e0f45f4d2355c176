package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"handwerk/internal/domain"
	"handwerk/internal/domain/documents/invoice"
	"handwerk/internal/infrastructure/storage/postgres"
)

const (
	invoiceTable      = "docs_invoices"
	invoiceItemsTable = "docs_invoice_items"
)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.Invoice]
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txm *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			invoiceTable,
			invoiceItemsTable,
			postgres.ExtractDBColumns[invoice.Invoice](),
			func() *invoice.Invoice { return &invoice.Invoice{} },
		),
	}
}

// List retrieves invoices with filtering.
func (r *InvoiceRepo) List(ctx context.Context, f invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	return r.BaseDocumentRepo.List(ctx, f.ListFilter, invoiceConditions(f)...)
}

func invoiceConditions(f invoice.ListFilter) []squirrel.Sqlizer {
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
	if f.QuoteID != nil {
		conds = append(conds, squirrel.Eq{"quote_id": *f.QuoteID})
	}
	return conds
}

func (r *InvoiceRepo) dueQuery(before time.Time, statuses []invoice.Status) squirrel.SelectBuilder {
	return r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Eq{"status": statuses}).
		Where(squirrel.Lt{"due_date": before}).
		OrderBy("due_date", "number")
}

// ListDue returns live invoices in statuses whose due date is before the given day.
func (r *InvoiceRepo) ListDue(ctx context.Context, before time.Time, statuses []invoice.Status) ([]*invoice.Invoice, error) {
	sql, args, err := r.dueQuery(before, statuses).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*invoice.Invoice
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list due invoices: %w", err)
	}
	return out, nil
}

var _ invoice.Repository = (*InvoiceRepo)(nil)
