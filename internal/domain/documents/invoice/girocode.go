package invoice

import (
	"strings"
	"unicode/utf8"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/types"
)

// Payee is the receiving bank account printed on invoices.
type Payee struct {
	Name string
	IBAN string
	BIC  string
}

// GiroCode returns the EPC069-12 (BCD 002) payload for a SEPA credit
// transfer of the invoice gross amount. Render it as a QR code.
func GiroCode(inv *Invoice, payee Payee) (string, error) {
	iban := strings.ReplaceAll(strings.ToUpper(payee.IBAN), " ", "")
	if iban == "" || strings.TrimSpace(payee.Name) == "" {
		return "", apperror.NewValidation("payee name and IBAN are required").
			WithDetail("field", "payee")
	}
	name := truncate(strings.TrimSpace(payee.Name), 70)
	remittance := truncate(inv.Number, 140)

	lines := []string{
		"BCD",
		"002",
		"1",
		"SCT",
		strings.ToUpper(strings.TrimSpace(payee.BIC)),
		name,
		iban,
		"EUR" + types.Round2(inv.Gross).StringFixed(types.MoneyPlaces),
		"",
		"",
		remittance,
	}
	return strings.Join(lines, "\n"), nil
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
