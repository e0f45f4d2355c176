package article_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain"
	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/domain/filter"
	"handwerk/internal/domain/pricing"
	"handwerk/internal/infrastructure/storage/memory"
)

func newService() *article.Service {
	store := memory.New()
	return article.NewService(store.Articles(), store.Numbers(), store)
}

func single(number, name, sales, purchase string) *article.Article {
	a := article.New(number, name)
	a.GrossSalesPrice = decimal.RequireFromString(sales)
	a.GrossPurchasePrice = decimal.RequireFromString(purchase)
	return a
}

func TestCreateAndGet(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	a := single("WT-100", "Waschtisch 60cm", "238", "119")
	require.NoError(t, svc.Create(ctx, a))

	got, err := svc.GetByNumber(ctx, "WT-100")
	require.NoError(t, err)
	require.NotNil(t, got.Calculation)
	assert.Equal(t, "200.00", got.Calculation.NetSalesPrice.StringFixed(2))
	assert.Equal(t, "119.00", got.Calculation.BHR.Amount.StringFixed(2))
	assert.Equal(t, pricing.StateGood, got.Calculation.State)

	err = svc.Create(ctx, single("WT-100", "Doppelt", "1", "1"))
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
}

func TestGeneratedNumber(t *testing.T) {
	svc := newService()
	a := single("", "Silikon", "8.33", "3.57")
	require.NoError(t, svc.Create(context.Background(), a))
	assert.Regexp(t, `^ART-\d{4}-0001$`, a.Code)
}

func TestThresholdsHotSwap(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	a := single("K-1", "Kleinteile", "100", "75")
	require.NoError(t, svc.Create(ctx, a))

	got, err := svc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.StateMedium, got.Calculation.State)

	svc.SetThresholds(pricing.Thresholds{Good: decimal.NewFromInt(20), Bad: decimal.NewFromInt(5)})
	got, err = svc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.StateGood, got.Calculation.State)
}

func TestGroupComponents(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	pipe := single("R-1", "Rohr", "11.90", "5")
	require.NoError(t, svc.Create(ctx, pipe))
	gone := single("R-2", "Alt", "1", "1")
	require.NoError(t, svc.Create(ctx, gone))

	set := article.New("S-1", "Anschluss-Set")
	set.Type = article.TypeGroup
	set.Components = []article.Component{{ArticleID: pipe.ID}, {ArticleID: gone.ID}}
	require.NoError(t, svc.Create(ctx, set))

	nested := article.New("S-2", "Set im Set")
	nested.Type = article.TypeGroup
	nested.Components = []article.Component{{ArticleID: set.ID}}
	assert.True(t, apperror.IsCode(svc.Create(ctx, nested), apperror.CodeValidation))

	require.NoError(t, svc.Delete(ctx, gone.ID))

	resolved, err := svc.ResolveArticle(ctx, set.ID)
	require.NoError(t, err)
	assert.True(t, resolved.IsGroup)
	require.Len(t, resolved.Contained, 1, "deleted components are skipped")
	assert.Equal(t, "Rohr", resolved.Contained[0].Name)
	assert.Equal(t, "11.90", resolved.Contained[0].SalesPrice.StringFixed(2))
}

func TestListByType(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	pipe := single("R-1", "Rohr", "11.90", "5")
	require.NoError(t, svc.Create(ctx, pipe))
	require.NoError(t, svc.Create(ctx, single("R-0", "Muffe", "1.19", "0.5")))
	set := article.New("S-1", "Set")
	set.Type = article.TypeGroup
	set.Components = []article.Component{{ArticleID: pipe.ID}}
	require.NoError(t, svc.Create(ctx, set))

	res, err := svc.List(ctx, domain.ListFilter{
		AdvancedFilters: []filter.Item{filter.Eq("type", "article")},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "R-0", res.Items[0].Code, "articles are listed by number")
	assert.NotNil(t, res.Items[0].Calculation)
}
