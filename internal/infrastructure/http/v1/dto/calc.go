package dto

import (
	"handwerk/internal/core/types"
	"handwerk/internal/domain/documents"
	"handwerk/internal/domain/pricing"
)

// AmountQuery is an amount and a tax rate (default 19).
type AmountQuery struct {
	Amount string `form:"amount" binding:"required"`
	Rate   string `form:"rate"`
}

// Parse validates the query.
func (q *AmountQuery) Parse() (types.Money, pricing.TaxRate, error) {
	amount, err := ParseNumber("amount", documents.Numeric(q.Amount))
	if err != nil {
		return amount, 0, err
	}
	rate := pricing.DefaultRate
	if q.Rate != "" {
		if rate, err = pricing.ParseTaxRate(q.Rate); err != nil {
			return amount, 0, err
		}
	}
	return amount, rate, nil
}

// MarginQuery holds gross sales and purchase prices.
type MarginQuery struct {
	Sales    string `form:"sales" binding:"required"`
	Purchase string `form:"purchase" binding:"required"`
}

// Parse validates the query.
func (q *MarginQuery) Parse() (types.Money, types.Money, error) {
	sales, err := ParseNumber("sales", documents.Numeric(q.Sales))
	if err != nil {
		return sales, sales, err
	}
	purchase, err := ParseNumber("purchase", documents.Numeric(q.Purchase))
	return sales, purchase, err
}

// MarginResponse is the BHR with its calculation state.
type MarginResponse struct {
	pricing.MarginResult
	State pricing.CalculationState `json:"calculationState"`
}
