// Package pricing converts between gross and net amounts under German VAT
// and computes trading margins (BHR).
//
// Every derived value is rounded half-up to cents right after the operation
// that produces it, never deferred to an aggregate.
package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/types"
)

// TaxRate is a VAT rate in percent.
type TaxRate int

const (
	Rate0  TaxRate = 0  // steuerfrei
	Rate7  TaxRate = 7  // ermäßigt
	Rate19 TaxRate = 19 // Regelsteuersatz
)

// DefaultRate is applied to quotes and invoices.
const DefaultRate = Rate19

// Rates lists the supported rates in ascending order.
var Rates = []TaxRate{Rate0, Rate7, Rate19}

// Valid reports whether r is one of the supported rates.
func (r TaxRate) Valid() bool {
	switch r {
	case Rate0, Rate7, Rate19:
		return true
	default:
		return false
	}
}

// Validate returns InvalidTaxRate for unsupported rates.
func (r TaxRate) Validate() error {
	if !r.Valid() {
		return apperror.NewInvalidTaxRate(int(r))
	}
	return nil
}

// Factor returns 1 + r/100.
func (r TaxRate) Factor() decimal.Decimal {
	return decimal.NewFromInt(100 + int64(r)).Shift(-2)
}

func (r TaxRate) String() string {
	return strconv.Itoa(int(r)) + "%"
}

// ParseTaxRate accepts "19", "19%" or "7 %".
func ParseTaxRate(s string) (TaxRate, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperror.NewInvalidTaxRate(s).WithCause(fmt.Errorf("parse tax rate: %w", err))
	}
	r := TaxRate(n)
	if err := r.Validate(); err != nil {
		return 0, err
	}
	return r, nil
}

// NetFromGross returns gross / (1 + rate/100), rounded to cents.
func NetFromGross(gross types.Money, rate TaxRate) (types.Money, error) {
	if err := checkInputs("gross", gross, rate); err != nil {
		return decimal.Zero, err
	}
	return types.Round2(gross.Div(rate.Factor())), nil
}

// TaxFromGross returns the VAT contained in a gross amount.
func TaxFromGross(gross types.Money, rate TaxRate) (types.Money, error) {
	net, err := NetFromGross(gross, rate)
	if err != nil {
		return decimal.Zero, err
	}
	return types.Round2(gross.Sub(net)), nil
}

// GrossFromNet returns net * (1 + rate/100), rounded to cents.
func GrossFromNet(net types.Money, rate TaxRate) (types.Money, error) {
	if err := checkInputs("net", net, rate); err != nil {
		return decimal.Zero, err
	}
	return types.Round2(net.Mul(rate.Factor())), nil
}

// Split holds the net/tax/gross triple of one amount.
type Split struct {
	Net   types.Money `json:"net"`
	Tax   types.Money `json:"tax"`
	Gross types.Money `json:"gross"`
}

// SplitGross derives net and tax from a gross amount.
func SplitGross(gross types.Money, rate TaxRate) (Split, error) {
	net, err := NetFromGross(gross, rate)
	if err != nil {
		return Split{}, err
	}
	g := types.Round2(gross)
	return Split{Net: net, Tax: g.Sub(net), Gross: g}, nil
}

func checkInputs(field string, amount types.Money, rate TaxRate) error {
	if amount.IsNegative() {
		return apperror.NewInvalidAmount(field, amount.String())
	}
	return rate.Validate()
}
