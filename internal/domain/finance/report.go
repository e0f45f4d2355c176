package finance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"handwerk/internal/core/types"
	"handwerk/internal/domain/pricing"
)

// RateLine sums the transactions of one type and rate.
type RateLine struct {
	Type  Type            `json:"type"`
	Rate  pricing.TaxRate `json:"rate"`
	Count int             `json:"count"`
	Gross types.Money     `json:"gross"`
	Net   types.Money     `json:"net"`
	VAT   types.Money     `json:"vat"`
}

// VATReport holds the figures of one reporting period.
type VATReport struct {
	From  time.Time  `json:"from"`
	To    time.Time  `json:"to"`
	Lines []RateLine `json:"lines"`

	IncomeGross  types.Money `json:"incomeGross"`
	ExpenseGross types.Money `json:"expenseGross"`
	OutputVAT    types.Money `json:"outputVat"`
	InputVAT     types.Money `json:"inputVat"`

	// Payable is output VAT minus input VAT; negative means a refund
	Payable types.Money `json:"payable"`

	// PrivateCount is the number of private bookings left out
	PrivateCount int `json:"privateCount"`
}

// BuildVATReport sums transactions dated within [from, to].
// Net and VAT of every row are derived with the row's own rate.
func BuildVATReport(txs []*Transaction, from, to time.Time) (VATReport, error) {
	r := VATReport{
		From:         from,
		To:           to,
		IncomeGross:  decimal.Zero,
		ExpenseGross: decimal.Zero,
		OutputVAT:    decimal.Zero,
		InputVAT:     decimal.Zero,
	}

	type key struct {
		t    Type
		rate pricing.TaxRate
	}
	lines := make(map[key]*RateLine)

	for _, tx := range txs {
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		if IsPrivate(tx.Category) {
			r.PrivateCount++
			continue
		}
		split, err := pricing.SplitGross(tx.Amount, tx.TaxRate)
		if err != nil {
			return VATReport{}, err
		}

		k := key{tx.Type, tx.TaxRate}
		line, ok := lines[k]
		if !ok {
			line = &RateLine{Type: tx.Type, Rate: tx.TaxRate, Gross: decimal.Zero, Net: decimal.Zero, VAT: decimal.Zero}
			lines[k] = line
		}
		line.Count++
		line.Gross = line.Gross.Add(split.Gross)
		line.Net = line.Net.Add(split.Net)
		line.VAT = line.VAT.Add(split.Tax)

		switch tx.Type {
		case TypeIncome:
			r.IncomeGross = r.IncomeGross.Add(split.Gross)
			r.OutputVAT = r.OutputVAT.Add(split.Tax)
		case TypeExpense:
			r.ExpenseGross = r.ExpenseGross.Add(split.Gross)
			r.InputVAT = r.InputVAT.Add(split.Tax)
		}
	}

	r.Lines = make([]RateLine, 0, len(lines))
	for _, l := range lines {
		r.Lines = append(r.Lines, *l)
	}
	sort.Slice(r.Lines, func(i, j int) bool {
		if r.Lines[i].Type != r.Lines[j].Type {
			return r.Lines[i].Type == TypeIncome
		}
		return r.Lines[i].Rate > r.Lines[j].Rate
	})

	r.Payable = r.OutputVAT.Sub(r.InputVAT)
	return r, nil
}
