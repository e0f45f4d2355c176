package article

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/core/numerator"
	"handwerk/internal/core/tx"
	"handwerk/internal/domain"
	"handwerk/internal/domain/audit"
	"handwerk/internal/domain/documents"
	"handwerk/internal/domain/pricing"
)

// NumberPrefix is used for generated article numbers.
const NumberPrefix = "ART"

// Service provides business logic for the article catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Article]
	repo      Repository
	numerator numerator.Generator

	thresholds atomic.Pointer[pricing.Thresholds]
}

// NewService creates a new article service.
func NewService(repo Repository, gen numerator.Generator, txm tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Article]{
		Repo:       repo,
		TxManager:  txm,
		EntityName: "article",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}
	t := pricing.DefaultThresholds()
	svc.thresholds.Store(&t)

	audit.RegisterHooks(base.Hooks(), func(a *Article) (*string, *string) {
		return &a.CreatedBy, &a.UpdatedBy
	})
	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

// SetThresholds replaces the calculation state thresholds.
func (s *Service) SetThresholds(t pricing.Thresholds) {
	s.thresholds.Store(&t)
}

// Thresholds returns the current calculation state thresholds.
func (s *Service) Thresholds() pricing.Thresholds {
	return *s.thresholds.Load()
}

// prepareForCreate generates a missing article number and checks uniqueness.
func (s *Service) prepareForCreate(ctx context.Context, a *Article) error {
	a.RoundPrices()
	if a.Code == "" && s.numerator != nil {
		code, err := s.numerator.Next(ctx, numerator.DefaultConfig(NumberPrefix), nil, a.ID, time.Now())
		if err != nil {
			return fmt.Errorf("generate article number: %w", err)
		}
		a.Code = code
	}
	if err := s.checkNumberUnique(ctx, a); err != nil {
		return err
	}
	return s.checkComponents(ctx, a)
}

func (s *Service) prepareForUpdate(ctx context.Context, a *Article) error {
	a.RoundPrices()
	if err := s.checkNumberUnique(ctx, a); err != nil {
		return err
	}
	return s.checkComponents(ctx, a)
}

func (s *Service) checkNumberUnique(ctx context.Context, a *Article) error {
	if a.Code == "" {
		return nil
	}
	existing, err := s.repo.GetByCode(ctx, a.Code)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return apperror.NewCollaborator("get article", err)
	}
	if existing.ID != a.ID {
		return apperror.NewDuplicate("article", "articleNumber", a.Code)
	}
	return nil
}

// checkComponents requires every component of a group to exist and to be a single article.
func (s *Service) checkComponents(ctx context.Context, a *Article) error {
	if !a.IsGroup() || len(a.Components) == 0 {
		return nil
	}
	found, err := s.repo.GetByIDs(ctx, a.ComponentIDs())
	if err != nil {
		return apperror.NewCollaborator("get components", err)
	}
	byID := make(map[id.ID]*Article, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	for i, c := range a.Components {
		comp, ok := byID[c.ArticleID]
		if !ok {
			return apperror.NewValidation("component article does not exist").
				WithDetail("field", "components").
				WithDetail("index", i)
		}
		if comp.IsGroup() {
			return apperror.NewValidation("groups cannot contain other groups").
				WithDetail("field", "components").
				WithDetail("index", i)
		}
	}
	return nil
}

// GetByID returns an article with its calculation.
func (s *Service) GetByID(ctx context.Context, articleID id.ID) (*Article, error) {
	a, err := s.CatalogService.GetByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	a.Enrich(s.Thresholds())
	return a, nil
}

// GetByNumber returns an article by its article number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Article, error) {
	a, err := s.CatalogService.GetByCode(ctx, number)
	if err != nil {
		return nil, err
	}
	a.Enrich(s.Thresholds())
	return a, nil
}

// List returns articles with their calculations.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Article], error) {
	res, err := s.CatalogService.List(ctx, filter)
	if err != nil {
		return res, err
	}
	t := s.Thresholds()
	for _, a := range res.Items {
		a.Enrich(t)
	}
	return res, nil
}

// Resolve returns the existing articles among ids.
func (s *Service) Resolve(ctx context.Context, ids []id.ID) ([]*Article, error) {
	items, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.NewCollaborator("resolve articles", err)
	}
	return items, nil
}

// ResolveArticle implements documents.ArticleResolver. Components of a
// group that no longer exist are skipped; order follows the group definition.
func (s *Service) ResolveArticle(ctx context.Context, articleID id.ID) (documents.CatalogArticle, error) {
	a, err := s.CatalogService.GetByID(ctx, articleID)
	if err != nil {
		return documents.CatalogArticle{}, err
	}
	out := toCatalogArticle(a)
	if !a.IsGroup() {
		return out, nil
	}

	found, err := s.Resolve(ctx, a.ComponentIDs())
	if err != nil {
		return documents.CatalogArticle{}, err
	}
	byID := make(map[id.ID]*Article, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	for _, c := range a.Components {
		if comp, ok := byID[c.ArticleID]; ok {
			out.Contained = append(out.Contained, toCatalogArticle(comp))
		}
	}
	return out, nil
}

func toCatalogArticle(a *Article) documents.CatalogArticle {
	return documents.CatalogArticle{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		LongText:    a.LongText,
		Unit:        string(a.Unit),
		SalesPrice:  a.GrossSalesPrice,
		IsGroup:     a.IsGroup(),
	}
}

var _ documents.ArticleResolver = (*Service)(nil)
