// Package types provides common type aliases and utilities.
package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in EUR.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Quantity is a decimal quantity of a line item (pieces, hours, meters).
type Quantity = decimal.Decimal

// MoneyPlaces is the precision all derived monetary values are rounded to.
const MoneyPlaces int32 = 2

// QuantityPlaces is the stored precision of quantities.
const QuantityPlaces int32 = 4

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Round2 rounds half away from zero to cents (1.005 -> 1.01, 2.675 -> 2.68).
func Round2(m Money) Money {
	return m.Round(MoneyPlaces)
}

// RoundQuantity rounds a quantity to its stored precision.
func RoundQuantity(q Quantity) Quantity {
	return q.Round(QuantityPlaces)
}

// WithinCent reports whether a and b differ by at most one cent.
func WithinCent(a, b Money) bool {
	return a.Sub(b).Abs().LessThanOrEqual(decimal.New(1, -MoneyPlaces))
}

// ParseAmount parses user input such as "119", "119.00" or "119,00".
// Negative values are rejected.
func ParseAmount(s string) (Money, error) {
	normalized := normalizeNumber(s)
	if normalized == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return d, nil
}

// ParseLenient parses numeric form input the way the editing UI does:
// anything unparsable becomes 0 and negative values are clamped to 0.
func ParseLenient(s string) decimal.Decimal {
	d, err := decimal.NewFromString(normalizeNumber(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ClampNonNegative returns d, or zero when d is negative.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FormatEUR renders an amount with two decimals and a German decimal comma ("1.234,50 €").
func FormatEUR(m Money) string {
	s := Round2(m).StringFixed(MoneyPlaces)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := b.String() + "," + frac + " €"
	if neg {
		return "-" + out
	}
	return out
}

func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return s
}
