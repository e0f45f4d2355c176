package dto

import (
	"strings"

	"github.com/shopspring/decimal"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/core/types"
	"handwerk/internal/domain/documents"
	"handwerk/internal/domain/pricing"
)

// ParseNumber parses a strictly non-negative number. Empty input is zero.
func ParseNumber(field string, n documents.Numeric) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := types.ParseAmount(s)
	if err != nil {
		return decimal.Zero, apperror.NewInvalidAmount(field, s).WithCause(err)
	}
	return d, nil
}

func parseRate(rate *int) (pricing.TaxRate, error) {
	if rate == nil {
		return pricing.DefaultRate, nil
	}
	r := pricing.TaxRate(*rate)
	if err := r.Validate(); err != nil {
		return 0, err
	}
	return r, nil
}

func parseOptionalID(field string, s *string) (*id.ID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	parsed, err := id.Parse(*s)
	if err != nil {
		return nil, apperror.NewValidation("invalid id").WithDetail("field", field).WithDetail("value", *s)
	}
	return &parsed, nil
}

// --- Line items ---

// LineItemRequest is a manually entered line item.
type LineItemRequest struct {
	ArticleID   *string           `json:"articleId"`
	SetName     string            `json:"setName"`
	Description string            `json:"description"`
	LongText    string            `json:"longText"`
	Quantity    documents.Numeric `json:"quantity"`
	Unit        string            `json:"unit"`
	UnitPrice   documents.Numeric `json:"unitPrice"`
}

// ToLineItem validates amounts; negative or malformed numbers are rejected.
func (r LineItemRequest) ToLineItem() (documents.LineItem, error) {
	articleID, err := parseOptionalID("articleId", r.ArticleID)
	if err != nil {
		return documents.LineItem{}, err
	}
	qty, err := ParseNumber("quantity", r.Quantity)
	if err != nil {
		return documents.LineItem{}, err
	}
	price, err := ParseNumber("unitPrice", r.UnitPrice)
	if err != nil {
		return documents.LineItem{}, err
	}
	return documents.LineItem{
		ArticleID:   articleID,
		SetName:     strings.TrimSpace(r.SetName),
		Description: r.Description,
		LongText:    r.LongText,
		Quantity:    qty,
		Unit:        r.Unit,
		UnitPrice:   price,
		Source:      documents.SourceManual,
	}, nil
}

func toLineItems(reqs []LineItemRequest) (documents.Lines, error) {
	lines := make(documents.Lines, 0, len(reqs))
	for i, r := range reqs {
		item, err := r.ToLineItem()
		if err != nil {
			if ae, ok := apperror.AsAppError(err); ok {
				return nil, ae.WithDetail("index", i)
			}
			return nil, err
		}
		lines = append(lines, item)
	}
	return lines, nil
}

// AddArticleRequest adds a catalog article (or the contents of a group).
type AddArticleRequest struct {
	ArticleID string            `json:"articleId" binding:"required"`
	Quantity  documents.Numeric `json:"quantity"`
}

// MoveItemRequest moves the item at the path index to To.
type MoveItemRequest struct {
	To int `json:"to" binding:"min=0"`
}

// ItemResponse is a line item with its position and computed total.
type ItemResponse struct {
	documents.LineItem
	Index     int         `json:"index"`
	LineTotal types.Money `json:"lineTotal"`
}

// FromLines maps items in order.
func FromLines(lines documents.Lines, offset int) []ItemResponse {
	out := make([]ItemResponse, 0, len(lines))
	for i, item := range lines {
		out = append(out, ItemResponse{
			LineItem:  item,
			Index:     offset + i,
			LineTotal: item.LineTotal(),
		})
	}
	return out
}

// GroupResponse is one consecutive run of items with the same set name.
type GroupResponse struct {
	SetName    string         `json:"setName"`
	StartIndex int            `json:"startIndex"`
	Items      []ItemResponse `json:"items"`
	Subtotal   types.Money    `json:"subtotal"`
}

// FromGroups maps the grouped view.
func FromGroups(groups []documents.ItemGroup) []GroupResponse {
	out := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupResponse{
			SetName:    g.SetName,
			StartIndex: g.StartIndex,
			Items:      FromLines(g.Items, g.StartIndex),
			Subtotal:   g.Subtotal,
		})
	}
	return out
}
