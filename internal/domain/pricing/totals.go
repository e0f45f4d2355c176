package pricing

import (
	"github.com/shopspring/decimal"

	"handwerk/internal/core/types"
)

// Totals are the derived document amounts. They are recomputed from the
// line items on every change and after every load.
type Totals struct {
	Net   types.Money `db:"net_amount" json:"netAmount"`
	Tax   types.Money `db:"tax_amount" json:"taxAmount"`
	Gross types.Money `db:"gross_amount" json:"grossAmount"`
}

// LineTotal returns quantity * unitPrice rounded to cents.
func LineTotal(quantity types.Quantity, unitPrice types.Money) types.Money {
	return types.Round2(quantity.Mul(unitPrice))
}

// DocumentTotals sums gross line totals and derives net and tax with one rate
// for the whole document. Tax is gross - net, so the three always add up exactly.
func DocumentTotals(lineTotals []types.Money, rate TaxRate) (Totals, error) {
	gross := decimal.Zero
	for _, lt := range lineTotals {
		gross = gross.Add(lt)
	}
	split, err := SplitGross(gross, rate)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Net: split.Net, Tax: split.Tax, Gross: split.Gross}, nil
}
