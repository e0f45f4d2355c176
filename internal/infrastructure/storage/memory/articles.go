package memory

import (
	"context"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/domain"
	"handwerk/internal/domain/catalogs/article"
)

// ArticleRepo implements article.Repository.
type ArticleRepo struct {
	s *Store
}

// Articles returns the article repository of the store.
func (s *Store) Articles() *ArticleRepo {
	return &ArticleRepo{s: s}
}

func storedArticle(a *article.Article) article.Article {
	v := *a
	v.Components = append([]article.Component(nil), a.Components...)
	v.Calculation = nil
	return v
}

func loadedArticle(v article.Article) *article.Article {
	v.Components = append([]article.Component(nil), v.Components...)
	return &v
}

func (r *ArticleRepo) Create(ctx context.Context, a *article.Article) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("article.create"); err != nil {
			return err
		}
		for _, v := range st.articles {
			if v.Code == a.Code && !v.DeletionMark {
				return apperror.NewDuplicate("article", "articleNumber", a.Code)
			}
		}
		a.Version = 1
		st.articles[a.ID] = storedArticle(a)
		return nil
	})
}

func (r *ArticleRepo) GetByID(ctx context.Context, articleID id.ID) (*article.Article, error) {
	var out *article.Article
	err := r.s.view(ctx, func(st *state) error {
		v, ok := st.articles[articleID]
		if !ok {
			return apperror.NewNotFound("cat_articles", articleID.String())
		}
		out = loadedArticle(v)
		return nil
	})
	return out, err
}

func (r *ArticleRepo) GetByCode(ctx context.Context, code string) (*article.Article, error) {
	var out *article.Article
	err := r.s.view(ctx, func(st *state) error {
		for _, v := range st.articles {
			if v.Code == code && !v.DeletionMark {
				out = loadedArticle(v)
				return nil
			}
		}
		return apperror.NewNotFound("cat_articles", code)
	})
	return out, err
}

func (r *ArticleRepo) GetByIDs(ctx context.Context, ids []id.ID) ([]*article.Article, error) {
	out := make([]*article.Article, 0, len(ids))
	err := r.s.view(ctx, func(st *state) error {
		for _, articleID := range ids {
			if v, ok := st.articles[articleID]; ok && !v.DeletionMark {
				out = append(out, loadedArticle(v))
			}
		}
		return nil
	})
	return out, err
}

func (r *ArticleRepo) Update(ctx context.Context, a *article.Article) error {
	return r.s.view(ctx, func(st *state) error {
		cur, ok := st.articles[a.ID]
		if !ok || cur.Version != a.Version {
			return apperror.NewConcurrentModification("cat_articles", a.ID)
		}
		a.Version++
		st.articles[a.ID] = storedArticle(a)
		return nil
	})
}

func (r *ArticleRepo) Delete(ctx context.Context, articleID id.ID) error {
	return r.s.view(ctx, func(st *state) error {
		v, ok := st.articles[articleID]
		if !ok {
			return apperror.NewNotFound("cat_articles", articleID.String())
		}
		v.MarkDeleted()
		v.Version++
		st.articles[articleID] = v
		return nil
	})
}

func (r *ArticleRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*article.Article], error) {
	var rows []*article.Article
	err := r.s.view(ctx, func(st *state) error {
		for _, v := range st.articles {
			if v.DeletionMark && !f.IncludeDeleted {
				continue
			}
			if !inIDs(v.ID, f.IDs) {
				continue
			}
			if f.Search != "" && !containsFold(v.Code, f.Search) && !containsFold(v.Name, f.Search) {
				continue
			}
			if !matchAdvanced(f, map[string]string{
				"type":     string(v.Type),
				"status":   string(v.Status),
				"category": v.Category,
				"group":    v.Group,
			}) {
				continue
			}
			rows = append(rows, loadedArticle(v))
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*article.Article]{}, err
	}
	orderBy := f.OrderBy
	if orderBy == "" || orderBy == "-date" {
		orderBy = "code"
	}
	if err := sortRows(rows, orderBy, func(a *article.Article) orderKey {
		return orderKey{number: a.Code, created: a.CreatedAt}
	}); err != nil {
		return domain.ListResult[*article.Article]{}, err
	}
	return page(rows, f), nil
}

var _ article.Repository = (*ArticleRepo)(nil)
