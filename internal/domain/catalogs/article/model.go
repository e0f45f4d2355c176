// Package article provides the article catalog (Artikelstamm): single
// articles and group articles that expand into a set of line items.
package article

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/entity"
	"handwerk/internal/core/id"
	"handwerk/internal/core/types"
	"handwerk/internal/domain/pricing"
)

// Type distinguishes single articles from groups.
type Type string

const (
	TypeArticle Type = "article"
	TypeGroup   Type = "group"
)

// Unit of measure.
type Unit string

const (
	UnitPiece    Unit = "Stk"
	UnitHours    Unit = "Stunden"
	UnitMeter    Unit = "Meter"
	UnitFlatRate Unit = "Pauschal"
)

// Status of an article.
type Status string

const (
	StatusActive       Status = "Aktiv"
	StatusSpecialPrice Status = "Sonderpreis"
)

// Component is an article contained in a group.
type Component struct {
	ArticleID id.ID          `db:"component_id" json:"articleId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
}

// Article is a catalog entry. Code holds the article number.
// Prices are gross; net values are derived on read.
type Article struct {
	entity.Catalog

	Group      string      `db:"article_group" json:"group,omitempty"`
	Type       Type        `db:"type" json:"type"`
	Components []Component `db:"-" json:"components,omitempty"`

	GrossSalesPrice    types.Money     `db:"gross_sales_price" json:"grossSalesPrice"`
	GrossPurchasePrice types.Money     `db:"gross_purchase_price" json:"grossPurchasePrice"`
	TaxRate            pricing.TaxRate `db:"tax_rate" json:"taxRate"`

	Unit        Unit    `db:"unit" json:"unit"`
	Description string  `db:"description" json:"description,omitempty"`
	LongText    string  `db:"long_text" json:"longText,omitempty"`
	SupplierID  *string `db:"supplier_id" json:"supplierId,omitempty"`
	Status      Status  `db:"status" json:"status"`
	Stock       *int64  `db:"stock" json:"stock,omitempty"`
	Category    string  `db:"category" json:"category,omitempty"`

	ValidFrom *time.Time `db:"valid_from" json:"validFrom,omitempty"`

	// Calculation is derived, never stored
	Calculation *Calculation `db:"-" json:"calculation,omitempty"`
}

// New creates an active single article.
func New(number, name string) *Article {
	return &Article{
		Catalog: entity.NewCatalog(number, name),
		Type:    TypeArticle,
		Unit:    UnitPiece,
		Status:  StatusActive,
		TaxRate: pricing.DefaultRate,
	}
}

// Number returns the article number.
func (a *Article) Number() string {
	return a.Code
}

// IsGroup reports whether the article is a group.
func (a *Article) IsGroup() bool {
	return a.Type == TypeGroup
}

// RoundPrices brings prices to cents and component quantities to stored precision.
func (a *Article) RoundPrices() {
	a.GrossSalesPrice = types.Round2(a.GrossSalesPrice)
	a.GrossPurchasePrice = types.Round2(a.GrossPurchasePrice)
	for i := range a.Components {
		a.Components[i].Quantity = types.RoundQuantity(a.Components[i].Quantity)
	}
}

// Validate implements entity.Validatable interface.
func (a *Article) Validate(ctx context.Context) error {
	if err := a.Catalog.Validate(ctx); err != nil {
		if ae, ok := apperror.AsAppError(err); ok && ae.Details["field"] == "code" {
			return apperror.NewValidation("article number is required").
				WithDetail("field", "articleNumber")
		}
		return err
	}

	switch a.Type {
	case TypeArticle, TypeGroup:
	default:
		return apperror.NewValidation("invalid article type").
			WithDetail("field", "type").
			WithDetail("value", string(a.Type))
	}

	switch a.Unit {
	case UnitPiece, UnitHours, UnitMeter, UnitFlatRate:
	default:
		return apperror.NewValidation("invalid unit").
			WithDetail("field", "unit").
			WithDetail("value", string(a.Unit))
	}

	switch a.Status {
	case StatusActive, StatusSpecialPrice:
	default:
		return apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(a.Status))
	}

	if err := a.TaxRate.Validate(); err != nil {
		return err
	}
	if a.GrossSalesPrice.IsNegative() {
		return apperror.NewInvalidAmount("grossSalesPrice", a.GrossSalesPrice.String())
	}
	if a.GrossPurchasePrice.IsNegative() {
		return apperror.NewInvalidAmount("grossPurchasePrice", a.GrossPurchasePrice.String())
	}

	if a.IsGroup() {
		if len(a.Components) == 0 {
			return apperror.NewValidation("group article needs at least one component").
				WithDetail("field", "components")
		}
		for i, c := range a.Components {
			if c.ArticleID == a.ID {
				return apperror.NewValidation("group article cannot contain itself").
					WithDetail("field", "components").
					WithDetail("index", i)
			}
			if c.Quantity.IsNegative() {
				return apperror.NewInvalidAmount("components.quantity", c.Quantity.String())
			}
		}
	} else if len(a.Components) > 0 {
		return apperror.NewValidation("only group articles have components").
			WithDetail("field", "components")
	}

	return nil
}

// Calculation holds the values derived from the gross prices.
type Calculation struct {
	NetSalesPrice    types.Money              `json:"netSalesPrice"`
	NetPurchasePrice types.Money              `json:"netPurchasePrice"`
	IncludedTax      types.Money              `json:"includedTax"`
	BHR              pricing.MarginResult     `json:"bhr"`
	State            pricing.CalculationState `json:"calculationState"`
}

// Calculate derives net prices and margin. IncludedTax is the tax share
// of the purchase price.
func (a *Article) Calculate(t pricing.Thresholds) (Calculation, error) {
	sales, err := pricing.SplitGross(a.GrossSalesPrice, a.TaxRate)
	if err != nil {
		return Calculation{}, err
	}
	purchase, err := pricing.SplitGross(a.GrossPurchasePrice, a.TaxRate)
	if err != nil {
		return Calculation{}, err
	}
	bhr, err := pricing.Margin(a.GrossSalesPrice, a.GrossPurchasePrice)
	if err != nil {
		return Calculation{}, err
	}
	return Calculation{
		NetSalesPrice:    sales.Net,
		NetPurchasePrice: purchase.Net,
		IncludedTax:      purchase.Tax,
		BHR:              bhr,
		State:            t.Classify(bhr.Percent),
	}, nil
}

// Enrich sets Calculation. Articles with invalid stored prices keep a nil calculation.
func (a *Article) Enrich(t pricing.Thresholds) {
	c, err := a.Calculate(t)
	if err != nil {
		a.Calculation = nil
		return
	}
	a.Calculation = &c
}

// ComponentIDs returns the ids of the contained articles.
func (a *Article) ComponentIDs() []id.ID {
	ids := make([]id.ID, 0, len(a.Components))
	for _, c := range a.Components {
		ids = append(ids, c.ArticleID)
	}
	return ids
}

// SuggestGross returns the gross price for a net price at the default rate.
func SuggestGross(net decimal.Decimal) (types.Money, error) {
	return pricing.GrossFromNet(net, pricing.DefaultRate)
}
