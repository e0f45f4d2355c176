package dto

import (
	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/documents"
	"handwerk/internal/domain/documents/quote"
)

// CreateQuoteRequest represents a request to create a quote.
type CreateQuoteRequest struct {
	Customer documents.CustomerRef `json:"customer"`
	Project  documents.ProjectRef  `json:"project"`
	Date     string                `json:"date"`
	Comment  string                `json:"comment"`
	TaxRate  *int                  `json:"taxRate"`
	Items    []LineItemRequest     `json:"items"`
}

// ToEntity converts request to domain entity.
func (r *CreateQuoteRequest) ToEntity() (*quote.Quote, error) {
	doc := quote.New()
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
	rate, err := parseRate(r.TaxRate)
	if err != nil {
		return nil, err
	}
	doc.TaxRate = rate

	if doc.Items, err = toLineItems(r.Items); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateQuoteRequest changes header fields. Omitted fields are kept.
type UpdateQuoteRequest struct {
	Customer *documents.CustomerRef `json:"customer"`
	Project  *documents.ProjectRef  `json:"project"`
	Date     *string                `json:"date"`
	Comment  *string                `json:"comment"`
}

// ToPatch converts the request to a header patch.
func (r *UpdateQuoteRequest) ToPatch() (quote.HeaderPatch, error) {
	date, err := parseOptionalDate("date", r.Date)
	if err != nil {
		return quote.HeaderPatch{}, err
	}
	return quote.HeaderPatch{
		Customer: r.Customer,
		Project:  r.Project,
		Date:     date,
		Comment:  r.Comment,
	}, nil
}

// AcceptQuoteRequest carries the customer's signature: a reference to an
// already stored image or the PNG itself (base64 in JSON).
type AcceptQuoteRequest struct {
	SignatureRef string `json:"signatureRef"`
	SignaturePNG []byte `json:"signaturePng"`
}

// ToSignature converts the request.
func (r *AcceptQuoteRequest) ToSignature() quote.Signature {
	return quote.Signature{Ref: r.SignatureRef, PNG: r.SignaturePNG}
}

// QuoteResponse is a quote with computed line totals.
type QuoteResponse struct {
	*quote.Quote
	Items []ItemResponse `json:"items"`
}

// FromQuote creates QuoteResponse from a quote.
func FromQuote(q *quote.Quote) QuoteResponse {
	return QuoteResponse{Quote: q, Items: FromLines(q.Items, 0)}
}

// QuoteQuery adds quote filters to ListQuery.
type QuoteQuery struct {
	ListQuery
	Statuses   []string `form:"status"`
	CustomerID string   `form:"customerId"`
	ProjectID  string   `form:"projectId"`
}

// ToFilter builds the repository filter.
func (q *QuoteQuery) ToFilter() (quote.ListFilter, error) {
	base, err := q.ToListFilter()
	if err != nil {
		return quote.ListFilter{}, err
	}
	f := quote.ListFilter{ListFilter: base, CustomerID: q.CustomerID, ProjectID: q.ProjectID}
	for _, s := range q.Statuses {
		st := quote.Status(s)
		if !st.Valid() {
			return f, apperror.NewValidation("invalid status").WithDetail("value", s)
		}
		f.Statuses = append(f.Statuses, st)
	}
	return f, nil
}
