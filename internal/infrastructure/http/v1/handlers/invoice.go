package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"handwerk/internal/domain/documents/invoice"
	"handwerk/internal/infrastructure/http/v1/dto"
)

// PayeeFunc returns the current bank details for GiroCodes.
type PayeeFunc func() invoice.Payee

// InvoiceHandler handles invoice (Rechnung) endpoints.
type InvoiceHandler struct {
	*BaseDocumentHandler[*invoice.Invoice]
	service *invoice.Service
	payee   PayeeFunc
	now     func() time.Time
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service, history HistoryReader, payee PayeeFunc) *InvoiceHandler {
	return &InvoiceHandler{
		BaseDocumentHandler: NewBaseDocumentHandler(base, BaseDocumentHandlerConfig[*invoice.Invoice]{
			Service:    service,
			History:    history,
			EntityType: invoice.AggregateType,
			MapToDTO:   func(inv *invoice.Invoice) any { return dto.FromInvoice(inv) },
		}),
		service: service,
		payee:   payee,
		now:     time.Now,
	}
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	var query dto.InvoiceQuery
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
	h.OK(c, dto.NewListResponse(res, query.PaginationRequest, dto.FromInvoice))
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
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
	h.Created(c, dto.FromInvoice(doc))
}

// GetByNumber handles GET /invoices/by-number/:number
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	doc, err := h.service.GetByNumber(c.Request.Context(), c.Param("number"))
	h.respond(c, doc, err)
}

// Update handles PATCH /invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.UpdateInvoiceRequest
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

// Issue handles POST /invoices/:id/issue
func (h *InvoiceHandler) Issue(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	doc, err := h.service.Issue(c.Request.Context(), docID)
	h.respond(c, doc, err)
}

// Send handles POST /invoices/:id/send
func (h *InvoiceHandler) Send(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	doc, err := h.service.MarkSent(c.Request.Context(), docID)
	h.respond(c, doc, err)
}

// Pay handles POST /invoices/:id/pay
func (h *InvoiceHandler) Pay(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.PayInvoiceRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}
	paidAt, err := req.PaidAtOr(h.now())
	if err != nil {
		h.Error(c, err)
		return
	}
	doc, err := h.service.MarkPaid(c.Request.Context(), docID, paidAt)
	h.respond(c, doc, err)
}

// Overdue handles POST /invoices/:id/overdue
func (h *InvoiceHandler) Overdue(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	doc, err := h.service.MarkOverdue(c.Request.Context(), docID)
	h.respond(c, doc, err)
}

// Sweep handles POST /invoices/sweep-overdue
func (h *InvoiceHandler) Sweep(c *gin.Context) {
	n, err := h.service.SweepOverdue(c.Request.Context(), h.now())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"marked": n})
}

// GiroCode handles GET /invoices/:id/girocode
func (h *InvoiceHandler) GiroCode(c *gin.Context) {
	docID, ok := h.ParseID(c)
	if !ok {
		return
	}
	doc, err := h.service.Get(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	var payee invoice.Payee
	if h.payee != nil {
		payee = h.payee()
	}
	payload, err := invoice.GiroCode(doc, payee)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.GiroCodeResponse{Number: doc.Number, Payload: payload})
}

// RegisterRoutes registers invoice routes.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/sweep-overdue", h.Sweep)
	rg.GET("/by-number/:number", h.GetByNumber)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/history", h.History)
	rg.GET("/:id/groups", h.Groups)
	rg.GET("/:id/girocode", h.GiroCode)
	rg.POST("/:id/items", h.AddItem)
	rg.POST("/:id/items/articles", h.AddArticle)
	rg.PATCH("/:id/items/:index", h.UpdateItem)
	rg.DELETE("/:id/items/:index", h.RemoveItem)
	rg.POST("/:id/items/:index/move", h.MoveItem)
	rg.POST("/:id/issue", h.Issue)
	rg.POST("/:id/send", h.Send)
	rg.POST("/:id/pay", h.Pay)
	rg.POST("/:id/overdue", h.Overdue)
}
