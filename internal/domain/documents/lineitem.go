// Package documents holds the parts shared by quotes and invoices:
// ordered line items, set grouping, totals and weak references.
package documents

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/core/types"
	"handwerk/internal/domain/pricing"
)

// ItemSource records where a line item came from.
type ItemSource string

const (
	SourceManual   ItemSource = "manual"
	SourceArticle  ItemSource = "article"
	SourceQuote    ItemSource = "quote"
	SourceMaterial ItemSource = "material"
)

// LineItem is one billable row of a quote or invoice.
// UnitPrice is gross (VAT included). A nil ArticleID marks a free-text row.
type LineItem struct {
	ArticleID   *id.ID         `db:"article_id" json:"articleId,omitempty"`
	GroupID     *id.ID         `db:"group_id" json:"groupId,omitempty"`
	SetName     string         `db:"set_name" json:"setName,omitempty"`
	Description string         `db:"description" json:"description"`
	LongText    string         `db:"long_text" json:"longText,omitempty"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	Unit        string         `db:"unit" json:"unit"`
	UnitPrice   types.Money    `db:"unit_price" json:"unitPrice"`
	Source      ItemSource     `db:"source" json:"source,omitempty"`
}

// LineTotal returns quantity * unitPrice rounded to cents. Never stored.
func (li LineItem) LineTotal() types.Money {
	return pricing.LineTotal(li.Quantity, li.UnitPrice)
}

// IsFreeText reports whether the row does not reference an article.
func (li LineItem) IsFreeText() bool {
	return li.ArticleID == nil
}

// Normalized returns the item with its price in cents and its quantity at
// stored precision, so totals match what a reload computes.
func (li LineItem) Normalized() LineItem {
	li.UnitPrice = types.Round2(li.UnitPrice)
	li.Quantity = types.RoundQuantity(li.Quantity)
	return li
}

// Validate checks non-negative quantity and price.
func (li LineItem) Validate() error {
	if li.Quantity.IsNegative() {
		return apperror.NewInvalidAmount("quantity", li.Quantity.String())
	}
	if li.UnitPrice.IsNegative() {
		return apperror.NewInvalidAmount("unitPrice", li.UnitPrice.String())
	}
	return nil
}

// Lines is an ordered list of line items. Order controls grouping and display.
type Lines []LineItem

// Add appends an item and returns the new count.
func (l *Lines) Add(item LineItem) (int, error) {
	if err := item.Validate(); err != nil {
		return len(*l), err
	}
	if item.Source == "" {
		item.Source = SourceManual
	}
	*l = append(*l, item.Normalized())
	return len(*l), nil
}

// Remove deletes the item at index.
func (l *Lines) Remove(index int) error {
	if index < 0 || index >= len(*l) {
		return apperror.NewIndexOutOfRange(index, len(*l))
	}
	*l = append((*l)[:index], (*l)[index+1:]...)
	return nil
}

// Update merges patch into the item at index.
func (l *Lines) Update(index int, patch ItemPatch) error {
	if index < 0 || index >= len(*l) {
		return apperror.NewIndexOutOfRange(index, len(*l))
	}
	patch.apply(&(*l)[index])
	(*l)[index] = (*l)[index].Normalized()
	return nil
}

// Move reorders an item. Used by drag and drop in the editor.
func (l *Lines) Move(from, to int) error {
	n := len(*l)
	if from < 0 || from >= n {
		return apperror.NewIndexOutOfRange(from, n)
	}
	if to < 0 || to >= n {
		return apperror.NewIndexOutOfRange(to, n)
	}
	item := (*l)[from]
	rest := append(append(Lines{}, (*l)[:from]...), (*l)[from+1:]...)
	out := append(append(append(Lines{}, rest[:to]...), item), rest[to:]...)
	*l = out
	return nil
}

// LineTotals returns the rounded line total of every item in order.
func (l Lines) LineTotals() []types.Money {
	out := make([]types.Money, len(l))
	for i, item := range l {
		out[i] = item.LineTotal()
	}
	return out
}

// Clone returns a deep copy.
func (l Lines) Clone() Lines {
	if l == nil {
		return Lines{}
	}
	out := make(Lines, len(l))
	for i, item := range l {
		if item.ArticleID != nil {
			a := *item.ArticleID
			item.ArticleID = &a
		}
		if item.GroupID != nil {
			g := *item.GroupID
			item.GroupID = &g
		}
		out[i] = item
	}
	return out
}

// Numeric is form input for a number. It accepts JSON numbers and strings
// ("12", "12,5") and is coerced leniently: unparsable text and negatives become 0.
type Numeric string

// UnmarshalJSON implements json.Unmarshaler.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(s)
		return nil
	}
	*n = Numeric(string(data))
	return nil
}

// Decimal returns the coerced value.
func (n Numeric) Decimal() decimal.Decimal {
	return types.ParseLenient(string(n))
}

// ItemPatch holds the fields to change on a line item. Nil fields are kept.
type ItemPatch struct {
	SetName     *string  `json:"setName,omitempty"`
	Description *string  `json:"description,omitempty"`
	LongText    *string  `json:"longText,omitempty"`
	Quantity    *Numeric `json:"quantity,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
	UnitPrice   *Numeric `json:"unitPrice,omitempty"`
}

func (p ItemPatch) apply(item *LineItem) {
	if p.SetName != nil {
		item.SetName = strings.TrimSpace(*p.SetName)
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.LongText != nil {
		item.LongText = *p.LongText
	}
	if p.Quantity != nil {
		item.Quantity = p.Quantity.Decimal()
	}
	if p.Unit != nil {
		item.Unit = *p.Unit
	}
	if p.UnitPrice != nil {
		item.UnitPrice = p.UnitPrice.Decimal()
	}
}
