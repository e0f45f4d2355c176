package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/domain/documents"
	"handwerk/internal/infrastructure/http/v1/dto"
	"handwerk/internal/infrastructure/storage/postgres"
)

// DocumentService is what quotes and invoices share for item editing.
type DocumentService[T any] interface {
	Get(ctx context.Context, docID id.ID) (T, error)
	Delete(ctx context.Context, docID id.ID) error
	AddItem(ctx context.Context, docID id.ID, item documents.LineItem) (T, error)
	AddArticle(ctx context.Context, docID, articleID id.ID, quantity documents.Numeric) (T, error)
	RemoveItem(ctx context.Context, docID id.ID, index int) (T, error)
	UpdateItem(ctx context.Context, docID id.ID, index int, patch documents.ItemPatch) (T, error)
	MoveItem(ctx context.Context, docID id.ID, from, to int) (T, error)
	Groups(ctx context.Context, docID id.ID) ([]documents.ItemGroup, error)
}

// HistoryReader returns the audit trail of an entity.
type HistoryReader interface {
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// BaseDocumentHandler provides generic HTTP handlers for quotes and invoices.
type BaseDocumentHandler[T any] struct {
	*BaseHandler
	service    DocumentService[T]
	history    HistoryReader
	entityType string
	mapToDTO   func(doc T) any
}

// BaseDocumentHandlerConfig configures the document handler.
type BaseDocumentHandlerConfig[T any] struct {
	Service    DocumentService[T]
	History    HistoryReader
	EntityType string
	MapToDTO   func(doc T) any
}

// NewBaseDocumentHandler creates a new base document handler.
func NewBaseDocumentHandler[T any](base *BaseHandler, cfg BaseDocumentHandlerConfig[T]) *BaseDocumentHandler[T] {
	return &BaseDocumentHandler[T]{
		BaseHandler: base,
		service:     cfg.Service,
		history:     cfg.History,
		entityType:  cfg.EntityType,
		mapToDTO:    cfg.MapToDTO,
	}
}

// respond writes the document returned by a mutation.
func (h *BaseDocumentHandler[T]) respond(c *gin.Context, doc T, err error) {
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.mapToDTO(doc))
}

// Get handles GET /:id
func (h *BaseDocumentHandler[T]) Get(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	doc, err := h.service.Get(c.Request.Context(), docID)
	h.respond(c, doc, err)
}

// Delete handles DELETE /:id
func (h *BaseDocumentHandler[T]) Delete(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// AddItem handles POST /:id/items
func (h *BaseDocumentHandler[T]) AddItem(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.LineItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	item, err := req.ToLineItem()
	if err != nil {
		h.Error(c, err)
		return
	}
	doc, err := h.service.AddItem(c.Request.Context(), docID, item)
	h.respond(c, doc, err)
}

// AddArticle handles POST /:id/items/articles
func (h *BaseDocumentHandler[T]) AddArticle(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.AddArticleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	articleID, err := id.Parse(req.ArticleID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid article id").WithDetail("field", "articleId"))
		return
	}
	doc, err := h.service.AddArticle(c.Request.Context(), docID, articleID, req.Quantity)
	h.respond(c, doc, err)
}

// UpdateItem handles PATCH /:id/items/:index
func (h *BaseDocumentHandler[T]) UpdateItem(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	index, ok := h.ParseIndex(c)
	if !ok {
		return
	}
	var patch documents.ItemPatch
	if !h.BindJSON(c, &patch) {
		return
	}
	doc, err := h.service.UpdateItem(c.Request.Context(), docID, index, patch)
	h.respond(c, doc, err)
}

// RemoveItem handles DELETE /:id/items/:index
func (h *BaseDocumentHandler[T]) RemoveItem(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	index, ok := h.ParseIndex(c)
	if !ok {
		return
	}
	doc, err := h.service.RemoveItem(c.Request.Context(), docID, index)
	h.respond(c, doc, err)
}

// MoveItem handles POST /:id/items/:index/move
func (h *BaseDocumentHandler[T]) MoveItem(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	index, ok := h.ParseIndex(c)
	if !ok {
		return
	}
	var req dto.MoveItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.service.MoveItem(c.Request.Context(), docID, index, req.To)
	h.respond(c, doc, err)
}

// Groups handles GET /:id/groups
func (h *BaseDocumentHandler[T]) Groups(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	groups, err := h.service.Groups(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromGroups(groups))
}

// History handles GET /:id/history
func (h *BaseDocumentHandler[T]) History(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	if h.history == nil {
		h.OK(c, []dto.Audit{})
		return
	}
	entries, err := h.history.History(c.Request.Context(), h.entityType, docID, h.ParseIntQuery(c, "limit", 50))
	if err != nil {
		h.Error(c, apperror.NewCollaborator("read history", err))
		return
	}
	out := make([]dto.Audit, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.Audit{
			Action:    e.Action,
			Actor:     e.Actor,
			Changes:   e.Changes,
			CreatedAt: e.CreatedAt,
		})
	}
	h.OK(c, out)
}
