package dto

import (
	"strings"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/domain/documents"
)

// ComponentRequest is one article contained in a group.
type ComponentRequest struct {
	ArticleID string            `json:"articleId" binding:"required"`
	Quantity  documents.Numeric `json:"quantity"`
}

// ArticleRequest creates or replaces an article. Prices are gross.
type ArticleRequest struct {
	ArticleNumber      string             `json:"articleNumber"`
	Name               string             `json:"name" binding:"required"`
	Group              string             `json:"group"`
	Type               article.Type       `json:"type"`
	Components         []ComponentRequest `json:"components"`
	GrossSalesPrice    documents.Numeric  `json:"grossSalesPrice"`
	GrossPurchasePrice documents.Numeric  `json:"grossPurchasePrice"`
	TaxRate            *int               `json:"taxRate"`
	Unit               article.Unit       `json:"unit"`
	Description        string             `json:"description"`
	LongText           string             `json:"longText"`
	SupplierID         *string            `json:"supplierId"`
	Status             article.Status     `json:"status"`
	Stock              *int64             `json:"stock"`
	Category           string             `json:"category"`
	ValidFrom          *string            `json:"validFrom"`

	// Version is required on update
	Version int `json:"version"`
}

// ToEntity converts request to a new article.
func (r *ArticleRequest) ToEntity() (*article.Article, error) {
	a := article.New(r.ArticleNumber, r.Name)
	if err := r.ApplyTo(a); err != nil {
		return nil, err
	}
	return a, nil
}

// ApplyTo overwrites the editable fields of a.
func (r *ArticleRequest) ApplyTo(a *article.Article) error {
	a.Code = strings.TrimSpace(r.ArticleNumber)
	a.Name = strings.TrimSpace(r.Name)
	a.Group = r.Group
	if r.Type != "" {
		a.Type = r.Type
	}
	if r.Unit != "" {
		a.Unit = r.Unit
	}
	if r.Status != "" {
		a.Status = r.Status
	}
	a.Description = r.Description
	a.LongText = r.LongText
	a.SupplierID = r.SupplierID
	a.Stock = r.Stock
	a.Category = r.Category
	if r.Version > 0 {
		a.Version = r.Version
	}

	var err error
	if a.GrossSalesPrice, err = ParseNumber("grossSalesPrice", r.GrossSalesPrice); err != nil {
		return err
	}
	if a.GrossPurchasePrice, err = ParseNumber("grossPurchasePrice", r.GrossPurchasePrice); err != nil {
		return err
	}
	if a.TaxRate, err = parseRate(r.TaxRate); err != nil {
		return err
	}
	if a.ValidFrom, err = parseOptionalDate("validFrom", r.ValidFrom); err != nil {
		return err
	}

	a.Components = a.Components[:0]
	for i, c := range r.Components {
		compID, err := id.Parse(c.ArticleID)
		if err != nil {
			return apperror.NewValidation("invalid component id").
				WithDetail("field", "components").
				WithDetail("index", i)
		}
		qty, err := ParseNumber("components.quantity", c.Quantity)
		if err != nil {
			return err
		}
		a.Components = append(a.Components, article.Component{ArticleID: compID, Quantity: qty})
	}
	return nil
}

// ArticleResponse exposes the article number under its business name.
type ArticleResponse struct {
	*article.Article
	ArticleNumber string `json:"articleNumber"`
}

// FromArticle creates ArticleResponse from an article.
func FromArticle(a *article.Article) ArticleResponse {
	return ArticleResponse{Article: a, ArticleNumber: a.Code}
}

// SuggestGrossResponse is the gross price for a net price at 19%.
type SuggestGrossResponse struct {
	Net   string `json:"net"`
	Gross string `json:"gross"`
}

// ImportResponse reports a price list import.
type ImportResponse struct {
	Rows    int `json:"rows"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}
