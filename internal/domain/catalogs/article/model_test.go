package article

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/pricing"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		sales     string
		purchase  string
		netSales  string
		netBuy    string
		tax       string
		bhr       string
		percent   string
		wantState pricing.CalculationState
	}{
		{"good", "119", "59.50", "100.00", "50.00", "9.50", "59.50", "50.00", pricing.StateGood},
		{"medium", "100", "80", "84.03", "67.23", "12.77", "20.00", "20.00", pricing.StateMedium},
		{"bad", "100", "95", "84.03", "79.83", "15.17", "5.00", "5.00", pricing.StateBad},
		{"no sales price", "0", "10", "0.00", "8.40", "1.60", "-10.00", "0.00", pricing.StateBad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New("A-1", "Kupferrohr")
			a.GrossSalesPrice = money(tt.sales)
			a.GrossPurchasePrice = money(tt.purchase)

			c, err := a.Calculate(pricing.DefaultThresholds())
			require.NoError(t, err)
			assert.Equal(t, tt.netSales, c.NetSalesPrice.StringFixed(2))
			assert.Equal(t, tt.netBuy, c.NetPurchasePrice.StringFixed(2))
			assert.Equal(t, tt.tax, c.IncludedTax.StringFixed(2))
			assert.Equal(t, tt.bhr, c.BHR.Amount.StringFixed(2))
			assert.Equal(t, tt.percent, c.BHR.Percent.StringFixed(2))
			assert.Equal(t, tt.wantState, c.State)
		})
	}
}

func TestEnrichKeepsInvalidPricesUncalculated(t *testing.T) {
	a := New("A-1", "Kupferrohr")
	a.GrossSalesPrice = money("-1")
	a.Enrich(pricing.DefaultThresholds())
	assert.Nil(t, a.Calculation)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	a := New("", "Rohr")
	err := a.Validate(ctx)
	require.Error(t, err)
	ae, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "articleNumber", ae.Details["field"])

	a = New("A-2", "Set Bad")
	a.Type = TypeGroup
	assert.Error(t, a.Validate(ctx), "group without components")

	a.Components = []Component{{ArticleID: a.ID, Quantity: decimal.NewFromInt(1)}}
	assert.Error(t, a.Validate(ctx), "group containing itself")

	other := New("A-3", "Waschtisch")
	a.Components = []Component{{ArticleID: other.ID, Quantity: decimal.NewFromInt(1)}}
	assert.NoError(t, a.Validate(ctx))

	a = New("A-4", "Rohr")
	a.GrossPurchasePrice = money("-5")
	assert.True(t, apperror.IsCode(a.Validate(ctx), apperror.CodeInvalidAmount))

	a = New("A-5", "Rohr")
	a.Unit = "kg"
	assert.Error(t, a.Validate(ctx))
}

func TestSuggestGross(t *testing.T) {
	g, err := SuggestGross(money("100"))
	require.NoError(t, err)
	assert.Equal(t, "119.00", g.StringFixed(2))
}
