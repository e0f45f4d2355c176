package documents

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/core/types"
)

type fakeDoc struct {
	Body
	frozen bool
}

func (d *fakeDoc) EnsureEditable() error {
	if d.frozen {
		return apperror.NewDocumentNotEditable("test", "1", "paid")
	}
	return nil
}

func newFakeDoc() *fakeDoc {
	return &fakeDoc{Body: NewBody()}
}

func item(set string, qty, price string) LineItem {
	return LineItem{
		SetName:     set,
		Description: set + " row",
		Quantity:    types.MustMoney(qty),
		UnitPrice:   types.MustMoney(price),
	}
}

func assertConsistent(t *testing.T, d *fakeDoc) {
	t.Helper()
	assert.True(t, d.Net.Add(d.Tax).Equal(d.Gross), "net %s + tax %s != gross %s", d.Net, d.Tax, d.Gross)
}

func TestAddItemRecalculates(t *testing.T) {
	d := newFakeDoc()

	n, err := AddItem(d, item("", "1", "119"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = AddItem(d, item("", "1", "119"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "238.00", d.Gross.StringFixed(2))
	assert.Equal(t, "200.00", d.Net.StringFixed(2))
	assert.Equal(t, "38.00", d.Tax.StringFixed(2))
	assert.Equal(t, SourceManual, d.Items[0].Source)
}

func TestAddItemRejectsNegative(t *testing.T) {
	d := newFakeDoc()
	_, err := AddItem(d, item("", "-1", "10"))
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidAmount))
	assert.Empty(t, d.Items)
}

func TestTotalsStayConsistentAcrossMutations(t *testing.T) {
	d := newFakeDoc()
	prices := []string{"0.01", "9.99", "13.37", "100.05", "7.77", "1234.56"}
	for i, p := range prices {
		_, err := AddItem(d, item("", decimal.NewFromInt(int64(i+1)).String(), p))
		require.NoError(t, err)
		assertConsistent(t, d)
	}

	qty := Numeric("2,5")
	require.NoError(t, UpdateItem(d, 1, ItemPatch{Quantity: &qty}))
	assertConsistent(t, d)

	require.NoError(t, RemoveItem(d, 0))
	assertConsistent(t, d)

	require.NoError(t, RemoveItem(d, len(d.Items)-1))
	assertConsistent(t, d)
}

func TestRemoveItemOutOfRange(t *testing.T) {
	d := newFakeDoc()
	_, _ = AddItem(d, item("", "1", "1"))

	err := RemoveItem(d, 1)
	assert.True(t, apperror.IsCode(err, apperror.CodeIndexRange))
	err = RemoveItem(d, -1)
	assert.True(t, apperror.IsCode(err, apperror.CodeIndexRange))
	assert.Len(t, d.Items, 1)
}

func TestUpdateItemCoercesNumbers(t *testing.T) {
	d := newFakeDoc()
	_, _ = AddItem(d, item("", "3", "10"))

	bad := Numeric("abc")
	neg := Numeric("-5")
	desc := "Silikonfuge"
	require.NoError(t, UpdateItem(d, 0, ItemPatch{Quantity: &bad, UnitPrice: &neg, Description: &desc}))

	assert.True(t, d.Items[0].Quantity.IsZero())
	assert.True(t, d.Items[0].UnitPrice.IsZero())
	assert.Equal(t, "Silikonfuge", d.Items[0].Description)
	assert.True(t, d.Gross.IsZero())

	price := Numeric("1.234,50")
	one := Numeric("1")
	require.NoError(t, UpdateItem(d, 0, ItemPatch{Quantity: &one, UnitPrice: &price}))
	assert.Equal(t, "1234.50", d.Gross.StringFixed(2))

	err := UpdateItem(d, 4, ItemPatch{})
	assert.True(t, apperror.IsCode(err, apperror.CodeIndexRange))
}

func TestItemsHeldAtStoredPrecision(t *testing.T) {
	d := newFakeDoc()
	_, err := AddItem(d, item("", "1.00005", "19.999"))
	require.NoError(t, err)
	assert.Equal(t, "20", d.Items[0].UnitPrice.String())
	assert.Equal(t, "1.0001", d.Items[0].Quantity.String())

	qty := Numeric("3")
	price := Numeric("0,333")
	require.NoError(t, UpdateItem(d, 0, ItemPatch{Quantity: &qty, UnitPrice: &price}))
	assert.Equal(t, "0.33", d.Items[0].UnitPrice.String())
	assert.Equal(t, "0.99", d.Gross.StringFixed(2), "totals match a reload of the rounded price")

	a := CatalogArticle{ID: id.New(), Name: "Dübel", Unit: "Stk", SalesPrice: types.MustMoney("0.125")}
	_, err = AddFromArticle(d, a, decimal.RequireFromString("2.123456"))
	require.NoError(t, err)
	assert.Equal(t, "0.13", d.Items[1].UnitPrice.String())
	assert.Equal(t, "2.1235", d.Items[1].Quantity.String())

	raw := NewBody()
	raw.Items = Lines{item("", "3", "0.333")}
	require.NoError(t, raw.Recalculate())
	assert.Equal(t, "0.33", raw.Items[0].UnitPrice.String())
	assert.Equal(t, "0.99", raw.Gross.StringFixed(2))
}

func TestNumericUnmarshal(t *testing.T) {
	var n Numeric
	require.NoError(t, n.UnmarshalJSON([]byte(`12.5`)))
	assert.Equal(t, "12.5", n.Decimal().String())
	require.NoError(t, n.UnmarshalJSON([]byte(`"7,25"`)))
	assert.Equal(t, "7.25", n.Decimal().String())
}

func TestFrozenDocumentRejectsMutations(t *testing.T) {
	d := newFakeDoc()
	_, _ = AddItem(d, item("", "1", "10"))
	d.frozen = true

	_, err := AddItem(d, item("", "1", "10"))
	assert.True(t, apperror.IsCode(err, apperror.CodeDocumentNotEditable))
	_, err = AddFromArticle(d, CatalogArticle{ID: id.New(), Name: "x"}, decimal.Zero)
	assert.True(t, apperror.IsCode(err, apperror.CodeDocumentNotEditable))
	assert.True(t, apperror.IsCode(RemoveItem(d, 0), apperror.CodeDocumentNotEditable))
	assert.True(t, apperror.IsCode(UpdateItem(d, 0, ItemPatch{}), apperror.CodeDocumentNotEditable))
	assert.True(t, apperror.IsCode(MoveItem(d, 0, 0), apperror.CodeDocumentNotEditable))

	assert.Len(t, d.Items, 1)
	assert.Len(t, GroupedView(d), 1)
}

func TestAddFromGroupArticle(t *testing.T) {
	d := newFakeDoc()
	group := CatalogArticle{
		ID:      id.New(),
		Name:    "Badsanierung Basis",
		IsGroup: true,
		Contained: []CatalogArticle{
			{ID: id.New(), Name: "Fliesen verlegen", Unit: "m²", SalesPrice: types.MustMoney("50.00"), Description: "inkl. Kleber"},
			{ID: id.New(), Name: "Silikonfuge", Unit: "m", SalesPrice: types.MustMoney("8.50"), LongText: "elastisch"},
		},
	}

	n, err := AddFromArticle(d, group, decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, it := range d.Items {
		assert.Equal(t, "Badsanierung Basis", it.SetName)
		assert.True(t, it.Quantity.IsZero())
		assert.True(t, it.LineTotal().IsZero())
		assert.Equal(t, group.ID, *it.GroupID)
	}
	assert.Equal(t, "50.00", d.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "inkl. Kleber", d.Items[0].LongText)
	assert.Equal(t, "elastisch", d.Items[1].LongText)
	assert.True(t, d.Gross.IsZero())
}

func TestAddFromSingleArticle(t *testing.T) {
	d := newFakeDoc()
	a := CatalogArticle{ID: id.New(), Name: "Anfahrt", Unit: "Pauschal", SalesPrice: types.MustMoney("35.70")}

	_, err := AddFromArticle(d, a, decimal.Zero)
	require.NoError(t, err)
	_, err = AddFromArticle(d, a, decimal.NewFromInt(2))
	require.NoError(t, err)

	assert.Equal(t, "1", d.Items[0].Quantity.String())
	assert.Equal(t, "2", d.Items[1].Quantity.String())
	assert.Equal(t, a.ID, *d.Items[1].ArticleID)
	assert.Empty(t, d.Items[0].SetName)
	assert.Equal(t, "107.10", d.Gross.StringFixed(2))

	_, err = AddFromArticle(d, a, decimal.NewFromInt(-1))
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidAmount))
}

func TestGroupedViewConsecutiveRuns(t *testing.T) {
	d := newFakeDoc()
	for _, set := range []string{"A", "A", "B", "A"} {
		_, err := AddItem(d, item(set, "1", "10"))
		require.NoError(t, err)
	}

	groups := GroupedView(d)
	require.Len(t, groups, 3)
	assert.Equal(t, "A", groups[0].SetName)
	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, "B", groups[1].SetName)
	assert.Len(t, groups[1].Items, 1)
	assert.Equal(t, "A", groups[2].SetName)
	assert.Len(t, groups[2].Items, 1)
	assert.Equal(t, 3, groups[2].StartIndex)
	assert.Equal(t, "20.00", groups[0].Subtotal.StringFixed(2))
}

func TestGroupedViewFlattensToOriginal(t *testing.T) {
	sets := [][]string{
		{},
		{""},
		{"", "", "X"},
		{"A", "B", "A", "B", ""},
		{"A", "A", "A"},
	}
	for _, seq := range sets {
		lines := Lines{}
		for i, s := range seq {
			_, err := lines.Add(item(s, decimal.NewFromInt(int64(i)).String(), "1"))
			require.NoError(t, err)
		}
		assert.Equal(t, lines, Flatten(lines.Grouped()))
	}
}

func TestMoveItem(t *testing.T) {
	d := newFakeDoc()
	for _, set := range []string{"A", "B", "C"} {
		_, _ = AddItem(d, item(set, "1", "1"))
	}
	require.NoError(t, MoveItem(d, 0, 2))
	assert.Equal(t, []string{"B", "C", "A"}, []string{d.Items[0].SetName, d.Items[1].SetName, d.Items[2].SetName})

	assert.True(t, apperror.IsCode(MoveItem(d, 0, 3), apperror.CodeIndexRange))
}

func TestCloneIsDeep(t *testing.T) {
	aid := id.New()
	lines := Lines{{ArticleID: &aid, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)}}
	c := lines.Clone()
	*c[0].ArticleID = id.New()
	assert.Equal(t, aid, *lines[0].ArticleID)
	assert.NotNil(t, Lines(nil).Clone())
}
