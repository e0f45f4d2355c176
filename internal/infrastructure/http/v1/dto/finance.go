package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/documents"
	"handwerk/internal/domain/finance"
)

// TransactionRequest creates or replaces a booking. Amount is gross.
type TransactionRequest struct {
	Date        string            `json:"date"`
	Type        finance.Type      `json:"type" binding:"required"`
	Description string            `json:"description"`
	Amount      documents.Numeric `json:"amount" binding:"required"`
	TaxRate     *int              `json:"taxRate"`
	Category    string            `json:"category"`
	ProjectID   *string           `json:"projectId"`
	ReceiptURL  *string           `json:"receiptUrl"`
	Version     int               `json:"version"`
}

// ToEntity converts request to a new transaction.
func (r *TransactionRequest) ToEntity() (*finance.Transaction, error) {
	t := finance.NewTransaction(r.Type, decimal.Zero)
	if err := r.ApplyTo(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ApplyTo overwrites the editable fields of t.
func (r *TransactionRequest) ApplyTo(t *finance.Transaction) error {
	amount, err := ParseNumber("amount", r.Amount)
	if err != nil {
		return err
	}
	t.Amount = amount
	t.Type = r.Type
	t.Description = r.Description
	t.Category = strings.TrimSpace(r.Category)
	t.ProjectID = r.ProjectID
	t.ReceiptURL = r.ReceiptURL
	if r.Version > 0 {
		t.Version = r.Version
	}
	if r.Date != "" {
		if t.Date, err = ParseDate("date", r.Date); err != nil {
			return err
		}
	}
	if t.TaxRate, err = parseRate(r.TaxRate); err != nil {
		return err
	}
	return nil
}

// TransactionQuery adds finance filters to ListQuery.
type TransactionQuery struct {
	ListQuery
	Types     []string `form:"type"`
	Category  string   `form:"category"`
	ProjectID string   `form:"projectId"`
}

// ToFilter builds the repository filter.
func (q *TransactionQuery) ToFilter() (finance.ListFilter, error) {
	base, err := q.ToListFilter()
	if err != nil {
		return finance.ListFilter{}, err
	}
	f := finance.ListFilter{ListFilter: base, Category: q.Category, ProjectID: q.ProjectID}
	for _, t := range q.Types {
		switch finance.Type(t) {
		case finance.TypeIncome, finance.TypeExpense:
			f.Types = append(f.Types, finance.Type(t))
		default:
			return f, apperror.NewValidation("invalid transaction type").WithDetail("value", t)
		}
	}
	return f, nil
}

// PeriodQuery bounds a report.
type PeriodQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// Parse validates both dates.
func (q *PeriodQuery) Parse() (time.Time, time.Time, error) {
	from, err := ParseDate("from", q.From)
	if err != nil {
		return from, from, err
	}
	to, err := ParseDate("to", q.To)
	return from, to, err
}
