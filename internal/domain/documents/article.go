package documents

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/core/types"
)

// CatalogArticle is what a line item copies from the article catalog.
// For group articles Contained holds the resolved components;
// components that no longer exist are already left out.
type CatalogArticle struct {
	ID          id.ID
	Name        string
	Description string
	LongText    string
	Unit        string
	SalesPrice  types.Money
	IsGroup     bool
	Contained   []CatalogArticle
}

// ExpandArticle turns a catalog article into line items.
// A group becomes one item per contained article, all with quantity 0 and
// SetName = group name. Any other article becomes a single item; quantity
// defaults to 1 when zero.
func ExpandArticle(a CatalogArticle, quantity types.Quantity) ([]LineItem, error) {
	if quantity.IsNegative() {
		return nil, apperror.NewInvalidAmount("quantity", quantity.String())
	}

	if a.IsGroup {
		groupID := a.ID
		items := make([]LineItem, 0, len(a.Contained))
		for _, c := range a.Contained {
			articleID := c.ID
			items = append(items, LineItem{
				ArticleID:   &articleID,
				GroupID:     &groupID,
				SetName:     strings.TrimSpace(a.Name),
				Description: c.Name,
				LongText:    longTextOf(c),
				Quantity:    decimal.Zero,
				Unit:        c.Unit,
				UnitPrice:   types.ClampNonNegative(c.SalesPrice),
				Source:      SourceArticle,
			}.Normalized())
		}
		return items, nil
	}

	if quantity.IsZero() {
		quantity = decimal.NewFromInt(1)
	}
	articleID := a.ID
	item := LineItem{
		ArticleID:   &articleID,
		Description: a.Name,
		LongText:    longTextOf(a),
		Quantity:    quantity,
		Unit:        a.Unit,
		UnitPrice:   types.ClampNonNegative(a.SalesPrice),
		Source:      SourceArticle,
	}
	return []LineItem{item.Normalized()}, nil
}

func longTextOf(a CatalogArticle) string {
	if a.LongText != "" {
		return a.LongText
	}
	return a.Description
}

// ArticleResolver loads a catalog article for AddFromArticle, with the
// components of group articles resolved.
type ArticleResolver interface {
	ResolveArticle(ctx context.Context, articleID id.ID) (CatalogArticle, error)
}
