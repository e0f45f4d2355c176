// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"encoding/json"
	"strings"
	"time"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/domain"
	"handwerk/internal/domain/filter"
)

// DateLayout is the wire format of business dates.
const DateLayout = "2006-01-02"

// ParseDate accepts 2006-01-02 or RFC 3339.
func ParseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperror.NewValidation("invalid date").
			WithDetail("field", field).
			WithDetail("value", s)
	}
	return t.UTC(), nil
}

func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := ParseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// --- Pagination ---

// PaginationRequest contains pagination parameters.
type PaginationRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"pageSize" binding:"omitempty,min=1,max=200"`
}

// Defaults sets default pagination values.
func (p *PaginationRequest) Defaults() {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 50
	}
}

// Offset calculates SQL offset.
func (p *PaginationRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaginationResponse contains pagination metadata.
type PaginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPaginationResponse creates pagination response.
func NewPaginationResponse(page, pageSize int, totalItems int64) PaginationResponse {
	totalPages := int(totalItems) / pageSize
	if int(totalItems)%pageSize > 0 {
		totalPages++
	}
	return PaginationResponse{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination PaginationResponse `json:"pagination"`
}

// NewListResponse maps a domain result page.
func NewListResponse[E any, T any](res domain.ListResult[E], p PaginationRequest, mapFn func(E) T) ListResponse[T] {
	data := make([]T, 0, len(res.Items))
	for _, item := range res.Items {
		data = append(data, mapFn(item))
	}
	return ListResponse[T]{
		Data:       data,
		Pagination: NewPaginationResponse(p.Page, p.PageSize, res.TotalCount),
	}
}

// --- Common Filters ---

// ListQuery holds the query parameters shared by all list endpoints.
// Filter is a JSON array of {field, operator, value}.
type ListQuery struct {
	PaginationRequest
	Search         string   `form:"search"`
	IDs            []string `form:"ids"`
	From           string   `form:"from"`
	To             string   `form:"to"`
	OrderBy        string   `form:"orderBy"`
	Filter         string   `form:"filter"`
	IncludeDeleted bool     `form:"includeDeleted"`
}

// ToListFilter validates the query and builds a domain filter.
func (q *ListQuery) ToListFilter() (domain.ListFilter, error) {
	q.Defaults()
	f := domain.ListFilter{
		Search:         strings.TrimSpace(q.Search),
		IncludeDeleted: q.IncludeDeleted,
		OrderBy:        q.OrderBy,
		Limit:          q.PageSize,
		Offset:         q.Offset(),
	}
	for _, raw := range q.IDs {
		parsed, err := id.Parse(raw)
		if err != nil {
			return f, apperror.NewValidation("invalid id").WithDetail("field", "ids").WithDetail("value", raw)
		}
		f.IDs = append(f.IDs, parsed)
	}
	var err error
	if f.DateFrom, err = parseOptionalDate("from", &q.From); err != nil {
		return f, err
	}
	if f.DateTo, err = parseOptionalDate("to", &q.To); err != nil {
		return f, err
	}
	if q.Filter != "" {
		var items []filter.Item
		if err := json.Unmarshal([]byte(q.Filter), &items); err != nil {
			return f, apperror.NewValidation("invalid filter").WithDetail("error", err.Error())
		}
		f.AdvancedFilters = items
	}
	return f, nil
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Base DTOs ---

// Audit is the history row of an entity.
type Audit struct {
	Action    string          `json:"action"`
	Actor     string          `json:"actor"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
