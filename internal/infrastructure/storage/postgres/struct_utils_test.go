package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"handwerk/internal/core/types"
	"handwerk/internal/domain/documents/quote"
	"handwerk/internal/domain/pricing"
)

func TestExtractDBColumns_Quote(t *testing.T) {
	cols := ExtractDBColumns[quote.Quote]()

	for _, expected := range []string{
		"id", "deletion_mark", "version", "created_at", "number", "date",
		"customer_id", "customer_name", "project_id", "tax_rate", "status", "invoice_id",
	} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "items")
	assert.NotContains(t, cols, "-")
}

func TestStructToMap_Quote(t *testing.T) {
	q := quote.New()
	q.Number = "AN-2026-0001"
	q.CustomerName = "Müller GmbH"
	q.TaxRate = pricing.Rate7

	m := StructToMap(q)

	assert.Equal(t, q.ID, m["id"])
	assert.Equal(t, 1, m["version"])
	assert.Equal(t, "AN-2026-0001", m["number"])
	assert.Equal(t, "Müller GmbH", m["customer_name"])
	assert.Equal(t, pricing.Rate7, m["tax_rate"])
	assert.Equal(t, quote.StatusDraft, m["status"])
	_, hasItems := m["items"]
	assert.False(t, hasItems)
}

func TestStructToMap_NilAndNonStruct(t *testing.T) {
	var q *quote.Quote
	assert.Nil(t, StructToMap(q))
	assert.Nil(t, StructToMap("AN-2026-0001"))
	assert.Empty(t, StructToMap(types.Zero()))
}

func TestPick(t *testing.T) {
	data := map[string]any{"id": 1, "name": "x", "version": 3}
	got := Pick(data, []string{"id", "name", "version", "missing"}, "version")
	assert.Equal(t, map[string]any{"id": 1, "name": "x"}, got)
}
