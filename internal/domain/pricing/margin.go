package pricing

import (
	"github.com/shopspring/decimal"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// MarginResult is the BHR (Bruttohandelsrohertrag) of a sale.
type MarginResult struct {
	Amount  types.Money     `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

// Margin computes sales - purchase and its share of sales in percent.
// Percent is 0 when sales is 0. The amount is negative when purchase exceeds sales.
func Margin(salesGross, purchaseGross types.Money) (MarginResult, error) {
	if salesGross.IsNegative() {
		return MarginResult{}, apperror.NewInvalidAmount("sales", salesGross.String())
	}
	if purchaseGross.IsNegative() {
		return MarginResult{}, apperror.NewInvalidAmount("purchase", purchaseGross.String())
	}

	amount := types.Round2(salesGross.Sub(purchaseGross))
	percent := decimal.Zero
	if salesGross.IsPositive() {
		percent = types.Round2(amount.Div(salesGross).Mul(hundred))
	}
	return MarginResult{Amount: amount, Percent: percent}, nil
}

// CalculationState classifies a margin percentage for the article list.
type CalculationState string

const (
	StateGood   CalculationState = "good"
	StateMedium CalculationState = "medium"
	StateBad    CalculationState = "bad"
)

// Thresholds bound the medium band: above Good is good, below Bad is bad.
type Thresholds struct {
	Good decimal.Decimal
	Bad  decimal.Decimal
}

// DefaultThresholds returns 30% / 10%.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Good: decimal.NewFromInt(30),
		Bad:  decimal.NewFromInt(10),
	}
}

// Classify returns the state of a margin percentage.
func (t Thresholds) Classify(percent decimal.Decimal) CalculationState {
	switch {
	case percent.GreaterThan(t.Good):
		return StateGood
	case percent.LessThan(t.Bad):
		return StateBad
	default:
		return StateMedium
	}
}
