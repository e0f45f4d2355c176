package handlers

import (
	"github.com/gin-gonic/gin"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/documents/quote"
	"handwerk/internal/infrastructure/http/v1/dto"
)

// QuoteHandler handles quote (Angebot) endpoints.
type QuoteHandler struct {
	*BaseDocumentHandler[*quote.Quote]
	service *quote.Service
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(base *BaseHandler, service *quote.Service, history HistoryReader) *QuoteHandler {
	return &QuoteHandler{
		BaseDocumentHandler: NewBaseDocumentHandler(base, BaseDocumentHandlerConfig[*quote.Quote]{
			Service:    service,
			History:    history,
			EntityType: quote.AggregateType,
			MapToDTO:   func(q *quote.Quote) any { return dto.FromQuote(q) },
		}),
		service: service,
	}
}

// List handles GET /quotes
func (h *QuoteHandler) List(c *gin.Context) {
	var query dto.QuoteQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()
	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	res, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, query.PaginationRequest, dto.FromQuote))
}

// Create handles POST /quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	var req dto.CreateQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromQuote(doc))
}

// GetByNumber handles GET /quotes/by-number/:number
func (h *QuoteHandler) GetByNumber(c *gin.Context) {
	doc, err := h.service.GetByNumber(c.Request.Context(), c.Param("number"))
	h.respond(c, doc, err)
}

// OpenForProject handles GET /quotes/open?projectId=
func (h *QuoteHandler) OpenForProject(c *gin.Context) {
	projectID := c.Query("projectId")
	if projectID == "" {
		h.Error(c, apperror.NewValidation("projectId is required").WithDetail("field", "projectId"))
		return
	}
	doc, err := h.service.FindOpenAcceptedForProject(c.Request.Context(), projectID)
	h.respond(c, doc, err)
}

// Update handles PATCH /quotes/:id
func (h *QuoteHandler) Update(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.UpdateQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		h.Error(c, err)
		return
	}
	doc, err := h.service.UpdateHeader(c.Request.Context(), docID, patch)
	h.respond(c, doc, err)
}

// Send handles POST /quotes/:id/send
func (h *QuoteHandler) Send(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	doc, err := h.service.MarkSent(c.Request.Context(), docID)
	h.respond(c, doc, err)
}

// Decline handles POST /quotes/:id/decline
func (h *QuoteHandler) Decline(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	doc, err := h.service.MarkDeclined(c.Request.Context(), docID)
	h.respond(c, doc, err)
}

// Accept handles POST /quotes/:id/accept
func (h *QuoteHandler) Accept(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.AcceptQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.service.MarkAccepted(c.Request.Context(), docID, req.ToSignature())
	h.respond(c, doc, err)
}

// Convert handles POST /quotes/:id/convert
func (h *QuoteHandler) Convert(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	inv, err := h.service.ConvertToInvoice(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromInvoice(inv))
}

// RegisterRoutes registers quote routes.
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/open", h.OpenForProject)
	rg.GET("/by-number/:number", h.GetByNumber)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/history", h.History)
	rg.GET("/:id/groups", h.Groups)
	rg.POST("/:id/items", h.AddItem)
	rg.POST("/:id/items/articles", h.AddArticle)
	rg.PATCH("/:id/items/:index", h.UpdateItem)
	rg.DELETE("/:id/items/:index", h.RemoveItem)
	rg.POST("/:id/items/:index/move", h.MoveItem)
	rg.POST("/:id/send", h.Send)
	rg.POST("/:id/accept", h.Accept)
	rg.POST("/:id/decline", h.Decline)
	rg.POST("/:id/convert", h.Convert)
}
