package pricelist

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/domain/pricing"
	"handwerk/internal/infrastructure/storage/memory"
)

func newCatalog(t *testing.T) *article.Service {
	t.Helper()
	store := memory.New()
	svc := article.NewService(store.Articles(), store.Numbers(), store)

	ctx := context.Background()
	for _, a := range []struct{ number, name, sales, purchase string }{
		{"WT-100", "Waschtisch 60cm", "238", "119"},
		{"SI-010", "Silikon weiß", "8.33", "3.57"},
	} {
		art := article.New(a.number, a.name)
		art.GrossSalesPrice = decimal.RequireFromString(a.sales)
		art.GrossPurchasePrice = decimal.RequireFromString(a.purchase)
		require.NoError(t, svc.Create(ctx, art))
	}
	return svc
}

func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf := &bytes.Buffer{}
	require.NoError(t, f.Write(buf))
	return buf
}

func TestExportThenParse(t *testing.T) {
	ctx := context.Background()
	svc := newCatalog(t)

	var buf bytes.Buffer
	n, err := Export(ctx, svc, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "SI-010", rows[0].Number)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "WT-100", rows[1].Number)
	assert.Equal(t, "238.00", rows[1].GrossSales.StringFixed(2))
	require.NotNil(t, rows[1].TaxRate)
	assert.Equal(t, pricing.Rate19, *rows[1].TaxRate)

	// unchanged sheet imports as a no-op
	res, err := Apply(ctx, svc, rows)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 2}, res)
}

func TestApplyCreatesAndUpdates(t *testing.T) {
	ctx := context.Background()
	svc := newCatalog(t)

	buf := workbook(t,
		Header[:importColumns],
		[]any{"WT-100", "", "", "", "249,90", "", "", "Sonderpreis", ""},
		[]any{"FL-200", "Fliesenkleber 25kg", "Fliesen", "Stk", "29.75", "14.28", "19", "", "Material"},
		[]any{"", "leere Zeile"},
	)
	rows, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].GrossPurchase)

	res, err := Apply(ctx, svc, rows)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1, Updated: 1}, res)

	wt, err := svc.GetByNumber(ctx, "WT-100")
	require.NoError(t, err)
	assert.Equal(t, "249.90", wt.GrossSalesPrice.StringFixed(2))
	assert.Equal(t, "119.00", wt.GrossPurchasePrice.StringFixed(2))
	assert.Equal(t, article.StatusSpecialPrice, wt.Status)
	assert.Equal(t, "Waschtisch 60cm", wt.Name)

	fl, err := svc.GetByNumber(ctx, "FL-200")
	require.NoError(t, err)
	assert.Equal(t, "Fliesen", fl.Group)
	assert.Equal(t, "Material", fl.Category)
	assert.Equal(t, article.StatusActive, fl.Status)
}

func TestParseRejects(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte("not a workbook")))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = Parse(workbook(t, []any{"id", "name"}))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = Parse(workbook(t,
		Header[:importColumns],
		[]any{"WT-100", "", "", "", "", "", "16", "", ""},
	))
	require.Error(t, err)
	ae, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 2, ae.Details["row"])
	assert.Equal(t, "tax_rate", ae.Details["column"])

	_, err = Parse(workbook(t,
		Header[:importColumns],
		[]any{"WT-100", "", "", "", "-5", "", "", "", ""},
	))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
