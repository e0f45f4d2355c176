// Package pricelist exports the article catalog to .xlsx and imports price
// changes back from it.
package pricelist

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/types"
	"handwerk/internal/domain"
	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/domain/pricing"
	"handwerk/pkg/logger"
)

// Header is the first row of an exported sheet. Columns after tax_rate are
// informational and ignored on import.
var Header = []any{
	"article_number",
	"name",
	"group",
	"unit",
	"gross_sales_price",
	"gross_purchase_price",
	"tax_rate",
	"status",
	"category",
	"net_sales_price",
	"bhr_amount",
	"bhr_percent",
}

const (
	colNumber = iota
	colName
	colGroup
	colUnit
	colSales
	colPurchase
	colTaxRate
	colStatus
	colCategory

	importColumns
)

// Catalog is the part of the article service the price list needs.
type Catalog interface {
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*article.Article], error)
	GetByNumber(ctx context.Context, number string) (*article.Article, error)
	Create(ctx context.Context, a *article.Article) error
	Update(ctx context.Context, a *article.Article) error
}

const pageSize = 500

// Export writes every article ordered by number to w.
func Export(ctx context.Context, catalog Catalog, w io.Writer) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &Header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	row := 2
	filter := domain.ListFilter{OrderBy: "code", Limit: pageSize}
	for {
		page, err := catalog.List(ctx, filter)
		if err != nil {
			return 0, fmt.Errorf("list articles: %w", err)
		}
		for _, a := range page.Items {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return 0, err
			}
			values := exportRow(a)
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return 0, fmt.Errorf("write row %d: %w", row, err)
			}
			row++
		}
		filter.Offset += len(page.Items)
		if len(page.Items) < pageSize || int64(filter.Offset) >= page.TotalCount {
			break
		}
	}

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return row - 2, nil
}

func exportRow(a *article.Article) []any {
	values := []any{
		a.Code,
		a.Name,
		a.Group,
		string(a.Unit),
		a.GrossSalesPrice.StringFixed(2),
		a.GrossPurchasePrice.StringFixed(2),
		int(a.TaxRate),
		string(a.Status),
		a.Category,
		"", "", "",
	}
	if c := a.Calculation; c != nil {
		values[9] = c.NetSalesPrice.StringFixed(2)
		values[10] = c.BHR.Amount.StringFixed(2)
		values[11] = c.BHR.Percent.StringFixed(2)
	}
	return values
}

// Row is one parsed import line. Nil prices leave the stored value unchanged.
type Row struct {
	Line          int
	Number        string
	Name          string
	Group         string
	Unit          article.Unit
	GrossSales    *types.Money
	GrossPurchase *types.Money
	TaxRate       *pricing.TaxRate
	Status        article.Status
	Category      string
}

// Parse reads the first sheet of an .xlsx price list.
func Parse(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperror.NewValidation("price list is not a readable .xlsx file").WithCause(err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, apperror.NewValidation("price list is empty")
	}
	if len(rows[0]) < importColumns || !strings.EqualFold(strings.TrimSpace(rows[0][colNumber]), "article_number") {
		return nil, apperror.NewValidation("unexpected price list header").
			WithDetail("expected", Header[:importColumns])
	}

	out := make([]Row, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		cells := make([]string, importColumns)
		for j := 0; j < importColumns && j < len(rows[i]); j++ {
			cells[j] = strings.TrimSpace(rows[i][j])
		}
		if cells[colNumber] == "" {
			continue
		}
		row, err := parseRow(i+1, cells)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func parseRow(line int, cells []string) (Row, error) {
	row := Row{
		Line:     line,
		Number:   cells[colNumber],
		Name:     cells[colName],
		Group:    cells[colGroup],
		Unit:     article.Unit(cells[colUnit]),
		Status:   article.Status(cells[colStatus]),
		Category: cells[colCategory],
	}

	var err error
	if row.GrossSales, err = parseMoney(cells[colSales]); err != nil {
		return Row{}, rowError(line, "gross_sales_price", err)
	}
	if row.GrossPurchase, err = parseMoney(cells[colPurchase]); err != nil {
		return Row{}, rowError(line, "gross_purchase_price", err)
	}
	if cells[colTaxRate] != "" {
		rate, err := pricing.ParseTaxRate(cells[colTaxRate])
		if err != nil {
			return Row{}, rowError(line, "tax_rate", err)
		}
		row.TaxRate = &rate
	}
	return row, nil
}

func parseMoney(s string) (*types.Money, error) {
	if s == "" {
		return nil, nil
	}
	m, err := types.ParseAmount(s)
	if err != nil {
		return nil, err
	}
	m = types.Round2(m)
	return &m, nil
}

func rowError(line int, column string, err error) error {
	return apperror.NewValidation(fmt.Sprintf("price list row %d: invalid %s", line, column)).
		WithDetail("row", line).
		WithDetail("column", column).
		WithCause(err)
}

// Result counts what an import did.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Apply creates unknown article numbers and updates known ones. Rows that
// change nothing are skipped. The first failing row stops the import.
func Apply(ctx context.Context, catalog Catalog, rows []Row) (Result, error) {
	var res Result
	for _, row := range rows {
		existing, err := catalog.GetByNumber(ctx, row.Number)
		switch {
		case apperror.IsNotFound(err):
			a := article.New(row.Number, row.Name)
			applyRow(a, row)
			if err := catalog.Create(ctx, a); err != nil {
				return res, fmt.Errorf("row %d: create %s: %w", row.Line, row.Number, err)
			}
			res.Created++
		case err != nil:
			return res, fmt.Errorf("row %d: %w", row.Line, err)
		default:
			if !applyRow(existing, row) {
				res.Skipped++
				continue
			}
			if err := catalog.Update(ctx, existing); err != nil {
				return res, fmt.Errorf("row %d: update %s: %w", row.Line, row.Number, err)
			}
			res.Updated++
		}
	}
	logger.Info(ctx, "price list imported",
		"created", res.Created, "updated", res.Updated, "skipped", res.Skipped)
	return res, nil
}

// applyRow copies non-empty cells onto a and reports whether anything changed.
func applyRow(a *article.Article, row Row) bool {
	changed := false
	setString := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	setMoney := func(dst *types.Money, v *types.Money) {
		if v != nil && !dst.Equal(*v) {
			*dst = *v
			changed = true
		}
	}

	setString(&a.Name, row.Name)
	setString(&a.Group, row.Group)
	setString(&a.Category, row.Category)
	if row.Unit != "" && a.Unit != row.Unit {
		a.Unit = row.Unit
		changed = true
	}
	if row.Status != "" && a.Status != row.Status {
		a.Status = row.Status
		changed = true
	}
	setMoney(&a.GrossSalesPrice, row.GrossSales)
	setMoney(&a.GrossPurchasePrice, row.GrossPurchase)
	if row.TaxRate != nil && a.TaxRate != *row.TaxRate {
		a.TaxRate = *row.TaxRate
		changed = true
	}
	return changed
}
