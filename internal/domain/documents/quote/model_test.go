package quote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
)

var at = time.Date(2026, 3, 10, 9, 30, 0, 0, time.FixedZone("CET", 3600))

func TestTransitions(t *testing.T) {
	all := []Status{StatusDraft, StatusSent, StatusAccepted, StatusDeclined, StatusInvoiced}
	allowed := map[[2]Status]bool{
		{StatusDraft, StatusSent}:        true,
		{StatusSent, StatusAccepted}:     true,
		{StatusSent, StatusDeclined}:     true,
		{StatusAccepted, StatusInvoiced}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestEditable(t *testing.T) {
	assert.True(t, StatusDraft.Editable())
	assert.True(t, StatusSent.Editable())
	assert.False(t, StatusAccepted.Editable())
	assert.False(t, StatusDeclined.Editable())
	assert.False(t, StatusInvoiced.Editable())

	q := New()
	q.Status = StatusInvoiced
	assert.True(t, apperror.IsCode(q.EnsureEditable(), apperror.CodeDocumentNotEditable))
}

func TestMarkAccepted(t *testing.T) {
	q := New()

	err := q.MarkAccepted("https://files/sig.png", "kunde", at)
	assert.True(t, apperror.IsCode(err, apperror.CodeIllegalTransition))
	assert.Equal(t, StatusDraft, q.Status)

	require.NoError(t, q.MarkSent(at))
	require.NotNil(t, q.SentAt)
	assert.Equal(t, time.UTC, q.SentAt.Location())

	err = q.MarkAccepted("  ", "kunde", at)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Equal(t, StatusSent, q.Status, "rejected acceptance leaves the status")

	require.NoError(t, q.MarkAccepted("https://files/sig.png", "kunde", at))
	assert.Equal(t, StatusAccepted, q.Status)
	assert.Equal(t, "https://files/sig.png", *q.SignatureURL)
	assert.Equal(t, "kunde", q.AcceptedBy)
	require.NotNil(t, q.AcceptedAt)
}

func TestMarkInvoiced(t *testing.T) {
	q := New()
	invoiceID := id.New()
	assert.Error(t, q.MarkInvoiced(invoiceID))
	assert.Nil(t, q.InvoiceID)

	q.Status = StatusAccepted
	require.NoError(t, q.MarkInvoiced(invoiceID))
	assert.Equal(t, StatusInvoiced, q.Status)
	assert.Equal(t, invoiceID, *q.InvoiceID)

	assert.True(t, apperror.IsCode(q.MarkInvoiced(id.New()), apperror.CodeIllegalTransition))
}

func TestMarkDeclined(t *testing.T) {
	q := New()
	q.Status = StatusSent
	require.NoError(t, q.MarkDeclined(at))
	assert.Equal(t, StatusDeclined, q.Status)
	assert.Error(t, q.MarkSent(at), "declined is terminal")
}

func TestValidate(t *testing.T) {
	q := New()
	require.NoError(t, q.Validate(context.Background()))

	q.TaxRate = 16
	assert.True(t, apperror.IsCode(q.Validate(context.Background()), apperror.CodeInvalidRate))

	q = New()
	q.Status = "archived"
	assert.Error(t, q.Validate(context.Background()))
}
