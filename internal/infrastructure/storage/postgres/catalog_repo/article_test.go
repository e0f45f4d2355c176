package catalog_repo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/core/types"
	"handwerk/internal/domain"
	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/domain/filter"
)

func TestArticleListQuery(t *testing.T) {
	repo := NewArticleRepo(nil)
	f := domain.ListFilter{
		Search: "fliese",
		AdvancedFilters: []filter.Item{
			filter.Eq("group", "Bad"),
			{Field: "type", Operator: filter.InList, Value: []string{"article", "group"}},
		},
		Limit: 25,
	}

	q, _, err := repo.listQuery(f)
	require.NoError(t, err)
	sql, args, err := q.ToSql()
	require.NoError(t, err)

	from := sql[strings.Index(sql, " FROM "):]
	assert.Equal(t,
		" FROM cat_articles WHERE deletion_mark = $1 AND (code ILIKE $2 OR name ILIKE $3)"+
			" AND article_group = $4 AND type IN ($5,$6) ORDER BY code ASC LIMIT 25",
		from)
	assert.Equal(t, []any{false, "%fliese%", "%fliese%", "Bad", "article", "group"}, args)
}

func TestArticleListQuery_DocumentDefaultOrderFallsBackToCode(t *testing.T) {
	repo := NewArticleRepo(nil)

	q, _, err := repo.listQuery(domain.DefaultListFilter())
	require.NoError(t, err)
	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY code ASC LIMIT 50")

	_, _, err = repo.listQuery(domain.ListFilter{OrderBy: "-date"})
	require.NoError(t, err)
	_, _, err = repo.listQuery(domain.ListFilter{OrderBy: "-price"})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestComponentQueries(t *testing.T) {
	groupID := id.New()
	first, second := id.New(), id.New()

	sql, args, err := insertComponentsQuery(groupID, []article.Component{
		{ArticleID: first, Quantity: types.MustMoney("2")},
		{ArticleID: second, Quantity: types.MustMoney("0.5")},
	}).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO cat_article_components (article_id,line_no,component_id,quantity) VALUES ($1,$2,$3,$4),($5,$6,$7,$8)",
		sql)
	assert.Equal(t, []any{groupID, 1, first, types.MustMoney("2"), groupID, 2, second, types.MustMoney("0.5")}, args)

	sql, args, err = componentsQuery([]id.ID{groupID}).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT article_id, component_id, quantity FROM cat_article_components WHERE article_id IN ($1) ORDER BY article_id, line_no",
		sql)
	assert.Equal(t, []any{groupID}, args)
}

func TestArticleUpdateQuery(t *testing.T) {
	repo := NewArticleRepo(nil)
	a := article.New("ART-1", "Silikon")
	a.Version = 2

	sql, args, err := repo.updateQuery(a).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "UPDATE cat_articles SET "))
	assert.Contains(t, sql, "article_group = $")
	assert.True(t, strings.HasSuffix(sql, "RETURNING version, updated_at"))
	assert.Equal(t, 2, args[len(args)-1])
}
