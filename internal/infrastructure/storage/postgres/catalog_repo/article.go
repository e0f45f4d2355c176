package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"handwerk/internal/core/id"
	"handwerk/internal/core/types"
	"handwerk/internal/domain"
	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/infrastructure/storage/postgres"
)

const (
	articleTable    = "cat_articles"
	componentsTable = "cat_article_components"
)

// ArticleRepo implements article.Repository. Group components live in
// cat_article_components and are written together with the article.
type ArticleRepo struct {
	*BaseCatalogRepo[*article.Article]
}

// NewArticleRepo creates a new article repository.
func NewArticleRepo(txm *postgres.TxManager) *ArticleRepo {
	base := NewBaseCatalogRepo(
		txm,
		articleTable,
		postgres.ExtractDBColumns[article.Article](),
		func() *article.Article { return &article.Article{} },
	)
	base.columns = base.columns.WithAlias("group", "article_group")
	return &ArticleRepo{BaseCatalogRepo: base}
}

// Create inserts the article and its components.
func (r *ArticleRepo) Create(ctx context.Context, a *article.Article) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.BaseCatalogRepo.Create(ctx, a); err != nil {
			return err
		}
		return r.saveComponents(ctx, a.ID, a.Components)
	})
}

// Update writes the article and replaces its components.
func (r *ArticleRepo) Update(ctx context.Context, a *article.Article) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.BaseCatalogRepo.Update(ctx, a); err != nil {
			return err
		}
		return r.saveComponents(ctx, a.ID, a.Components)
	})
}

// GetByID retrieves an article with components.
func (r *ArticleRepo) GetByID(ctx context.Context, articleID id.ID) (*article.Article, error) {
	a, err := r.BaseCatalogRepo.GetByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return a, r.attachComponents(ctx, a)
}

// GetByCode retrieves a live article by article number with components.
func (r *ArticleRepo) GetByCode(ctx context.Context, code string) (*article.Article, error) {
	a, err := r.BaseCatalogRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return a, r.attachComponents(ctx, a)
}

// GetByIDs returns live articles with components; missing ids are skipped.
func (r *ArticleRepo) GetByIDs(ctx context.Context, ids []id.ID) ([]*article.Article, error) {
	items, err := r.BaseCatalogRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return items, r.attachComponents(ctx, items...)
}

// List retrieves articles with components.
func (r *ArticleRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*article.Article], error) {
	result, err := r.BaseCatalogRepo.List(ctx, f)
	if err != nil {
		return result, err
	}
	return result, r.attachComponents(ctx, result.Items...)
}

type componentRow struct {
	ArticleID   id.ID          `db:"article_id"`
	ComponentID id.ID          `db:"component_id"`
	Quantity    types.Quantity `db:"quantity"`
}

func componentsQuery(ids []id.ID) squirrel.SelectBuilder {
	return postgres.Builder().
		Select("article_id", "component_id", "quantity").
		From(componentsTable).
		Where(squirrel.Eq{"article_id": ids}).
		OrderBy("article_id", "line_no")
}

// attachComponents loads the components of all group articles in one query.
func (r *ArticleRepo) attachComponents(ctx context.Context, items ...*article.Article) error {
	var groupIDs []id.ID
	byID := make(map[id.ID]*article.Article, len(items))
	for _, a := range items {
		if a.IsGroup() {
			groupIDs = append(groupIDs, a.ID)
			byID[a.ID] = a
			a.Components = nil
		}
	}
	if len(groupIDs) == 0 {
		return nil
	}

	sql, args, err := componentsQuery(groupIDs).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	var rows []componentRow
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return fmt.Errorf("load article components: %w", err)
	}
	for _, row := range rows {
		if a, ok := byID[row.ArticleID]; ok {
			a.Components = append(a.Components, article.Component{
				ArticleID: row.ComponentID,
				Quantity:  row.Quantity,
			})
		}
	}
	return nil
}

func insertComponentsQuery(articleID id.ID, components []article.Component) squirrel.InsertBuilder {
	q := postgres.Builder().
		Insert(componentsTable).
		Columns("article_id", "line_no", "component_id", "quantity")
	for i, c := range components {
		q = q.Values(articleID, i+1, c.ArticleID, c.Quantity)
	}
	return q
}

func (r *ArticleRepo) saveComponents(ctx context.Context, articleID id.ID, components []article.Component) error {
	q := r.querier(ctx)
	if _, err := q.Exec(ctx, `DELETE FROM cat_article_components WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("clear article components: %w", err)
	}
	if len(components) == 0 {
		return nil
	}

	sql, args, err := insertComponentsQuery(articleID, components).ToSql()
	if err != nil {
		return fmt.Errorf("build components insert: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert article components: %w", err)
	}
	return nil
}

var _ article.Repository = (*ArticleRepo)(nil)
