// Package finance records income and expenses and builds the VAT report
// (Umsatzsteuer-Voranmeldung figures).
package finance

import (
	"context"
	"strings"
	"time"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/entity"
	"handwerk/internal/core/types"
	"handwerk/internal/domain/pricing"
)

// Type of a transaction.
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// Private booking categories. They move money between owner and business
// and carry no VAT.
const (
	CategoryPrivateDeposit    = "Privateinlage"
	CategoryPrivateWithdrawal = "Privatentnahme"
)

// IsPrivate reports whether a category is a private booking.
func IsPrivate(category string) bool {
	switch strings.TrimSpace(category) {
	case CategoryPrivateDeposit, CategoryPrivateWithdrawal:
		return true
	}
	return false
}

// Transaction is one booked income or expense. Amount is gross; net and
// VAT are derived from it with the transaction's own rate.
type Transaction struct {
	entity.BaseDocument

	Date        time.Time       `db:"date" json:"date"`
	Type        Type            `db:"type" json:"type"`
	Description string          `db:"description" json:"description"`
	Amount      types.Money     `db:"amount" json:"amount"`
	TaxRate     pricing.TaxRate `db:"tax_rate" json:"taxRate"`
	NetAmount   types.Money     `db:"net_amount" json:"netAmount"`
	VATAmount   types.Money     `db:"vat_amount" json:"vatAmount"`
	Category    string          `db:"category" json:"category"`
	ProjectID   *string         `db:"project_id" json:"projectId,omitempty"`
	ReceiptURL  *string         `db:"receipt_url" json:"receiptUrl,omitempty"`
}

// NewTransaction creates a transaction dated today at the default rate.
func NewTransaction(t Type, amount types.Money) *Transaction {
	return &Transaction{
		BaseDocument: entity.NewBaseDocument(),
		Date:         time.Now().UTC().Truncate(24 * time.Hour),
		Type:         t,
		Amount:       amount,
		TaxRate:      pricing.DefaultRate,
	}
}

// Derive sets NetAmount and VATAmount from Amount and TaxRate.
// Private bookings carry no VAT.
func (t *Transaction) Derive() error {
	if IsPrivate(t.Category) {
		t.Amount = types.Round2(t.Amount)
		t.NetAmount = t.Amount
		t.VATAmount = types.Money{}
		return nil
	}
	split, err := pricing.SplitGross(t.Amount, t.TaxRate)
	if err != nil {
		return err
	}
	t.Amount, t.NetAmount, t.VATAmount = split.Gross, split.Net, split.Tax
	return nil
}

// Validate implements entity.Validatable interface.
func (t *Transaction) Validate(ctx context.Context) error {
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return apperror.NewValidation("invalid transaction type").
			WithDetail("field", "type").
			WithDetail("value", string(t.Type))
	}
	if t.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	if t.Amount.IsNegative() {
		return apperror.NewInvalidAmount("amount", t.Amount.String())
	}
	if strings.TrimSpace(t.Description) == "" {
		return apperror.NewValidation("description is required").
			WithDetail("field", "description")
	}
	return t.TaxRate.Validate()
}
