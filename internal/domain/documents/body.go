package documents

import (
	"handwerk/internal/domain/pricing"
)

// Body is the item list and derived totals shared by quotes and invoices.
// Totals are persisted for listing but recomputed after every load.
type Body struct {
	Items   Lines           `db:"-" json:"items"`
	TaxRate pricing.TaxRate `db:"tax_rate" json:"taxRate"`

	pricing.Totals
}

// NewBody returns an empty body at the default rate.
func NewBody() Body {
	return Body{
		Items:   Lines{},
		TaxRate: pricing.DefaultRate,
	}
}

// LineItems implements ItemDocument.
func (b *Body) LineItems() *Lines {
	return &b.Items
}

// Recalculate refreshes the totals from the items.
func (b *Body) Recalculate() error {
	for i, item := range b.Items {
		if err := item.Validate(); err != nil {
			return err
		}
		b.Items[i] = item.Normalized()
	}
	totals, err := pricing.DocumentTotals(b.Items.LineTotals(), b.TaxRate)
	if err != nil {
		return err
	}
	b.Totals = totals
	return nil
}
