package dto

import (
	"time"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/documents"
	"handwerk/internal/domain/documents/invoice"
)

// CreateInvoiceRequest represents a request to create a standalone invoice.
// Without dueDate the configured payment term applies.
type CreateInvoiceRequest struct {
	Customer documents.CustomerRef `json:"customer"`
	Project  documents.ProjectRef  `json:"project"`
	Date     string                `json:"date"`
	DueDate  *string               `json:"dueDate"`
	Comment  string                `json:"comment"`
	TaxRate  *int                  `json:"taxRate"`
	Draft    bool                  `json:"draft"`
	Items    []LineItemRequest     `json:"items"`
}

// ToEntity converts request to domain entity.
func (r *CreateInvoiceRequest) ToEntity() (*invoice.Invoice, error) {
	doc := invoice.New(r.Draft, 0)
	doc.DueDate = time.Time{}
	doc.CustomerRef = r.Customer
	doc.ProjectRef = r.Project
	doc.Comment = r.Comment

	if r.Date != "" {
		d, err := ParseDate("date", r.Date)
		if err != nil {
			return nil, err
		}
		doc.Date = d
	}
	due, err := parseOptionalDate("dueDate", r.DueDate)
	if err != nil {
		return nil, err
	}
	if due != nil {
		doc.DueDate = *due
	}
	if doc.TaxRate, err = parseRate(r.TaxRate); err != nil {
		return nil, err
	}
	if doc.Items, err = toLineItems(r.Items); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateInvoiceRequest changes header fields. Omitted fields are kept.
type UpdateInvoiceRequest struct {
	Customer *documents.CustomerRef `json:"customer"`
	Project  *documents.ProjectRef  `json:"project"`
	Date     *string                `json:"date"`
	DueDate  *string                `json:"dueDate"`
	Comment  *string                `json:"comment"`
}

// ToPatch converts the request to a header patch.
func (r *UpdateInvoiceRequest) ToPatch() (invoice.HeaderPatch, error) {
	date, err := parseOptionalDate("date", r.Date)
	if err != nil {
		return invoice.HeaderPatch{}, err
	}
	due, err := parseOptionalDate("dueDate", r.DueDate)
	if err != nil {
		return invoice.HeaderPatch{}, err
	}
	return invoice.HeaderPatch{
		Customer: r.Customer,
		Project:  r.Project,
		Date:     date,
		DueDate:  due,
		Comment:  r.Comment,
	}, nil
}

// PayInvoiceRequest records a payment. PaidAt defaults to now.
type PayInvoiceRequest struct {
	PaidAt *string `json:"paidAt"`
}

// PaidAtOr returns the payment date or now.
func (r *PayInvoiceRequest) PaidAtOr(now time.Time) (time.Time, error) {
	t, err := parseOptionalDate("paidAt", r.PaidAt)
	if err != nil || t == nil {
		return now, err
	}
	return *t, nil
}

// InvoiceResponse is an invoice with computed line totals.
type InvoiceResponse struct {
	*invoice.Invoice
	Items []ItemResponse `json:"items"`
}

// FromInvoice creates InvoiceResponse from an invoice.
func FromInvoice(inv *invoice.Invoice) InvoiceResponse {
	return InvoiceResponse{Invoice: inv, Items: FromLines(inv.Items, 0)}
}

// GiroCodeResponse is the EPC QR payload of an invoice.
type GiroCodeResponse struct {
	Number  string `json:"number"`
	Payload string `json:"payload"`
}

// InvoiceQuery adds invoice filters to ListQuery.
type InvoiceQuery struct {
	ListQuery
	Statuses   []string `form:"status"`
	CustomerID string   `form:"customerId"`
	ProjectID  string   `form:"projectId"`
	QuoteID    *string  `form:"quoteId"`
}

// ToFilter builds the repository filter.
func (q *InvoiceQuery) ToFilter() (invoice.ListFilter, error) {
	base, err := q.ToListFilter()
	if err != nil {
		return invoice.ListFilter{}, err
	}
	f := invoice.ListFilter{ListFilter: base, CustomerID: q.CustomerID, ProjectID: q.ProjectID}
	if f.QuoteID, err = parseOptionalID("quoteId", q.QuoteID); err != nil {
		return f, err
	}
	for _, s := range q.Statuses {
		st := invoice.Status(s)
		if !st.Valid() {
			return f, apperror.NewValidation("invalid status").WithDetail("value", s)
		}
		f.Statuses = append(f.Statuses, st)
	}
	return f, nil
}
