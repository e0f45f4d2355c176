package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/finance"
	"handwerk/internal/infrastructure/http/v1/dto"
)

const maxReceiptSize = 10 << 20

// FinanceHandler handles income and expense bookings.
type FinanceHandler struct {
	*BaseHandler
	service *finance.Service
}

// NewFinanceHandler creates a new finance handler.
func NewFinanceHandler(base *BaseHandler, service *finance.Service) *FinanceHandler {
	return &FinanceHandler{BaseHandler: base, service: service}
}

// List handles GET /transactions
func (h *FinanceHandler) List(c *gin.Context) {
	var query dto.TransactionQuery
	if !h.BindQuery(c, &query) {
		return
	}
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
	h.OK(c, dto.NewListResponse(res, query.PaginationRequest, func(t *finance.Transaction) *finance.Transaction { return t }))
}

// Create handles POST /transactions
func (h *FinanceHandler) Create(c *gin.Context) {
	var req dto.TransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	t, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), t); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, t)
}

// Get handles GET /transactions/:id
func (h *FinanceHandler) Get(c *gin.Context) {
	txID, ok := h.ParseID(c)
	if !ok {
		return
	}
	t, err := h.service.Get(c.Request.Context(), txID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, t)
}

// Update handles PUT /transactions/:id
func (h *FinanceHandler) Update(c *gin.Context) {
	txID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.TransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	t, err := h.service.Get(ctx, txID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(t); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Update(ctx, t); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, t)
}

// Delete handles DELETE /transactions/:id
func (h *FinanceHandler) Delete(c *gin.Context) {
	txID, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), txID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Receipt handles POST /transactions/:id/receipt with the file as multipart "file".
func (h *FinanceHandler) Receipt(c *gin.Context) {
	txID, ok := h.ParseID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxReceiptSize)
	fh, err := c.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("multipart field file is required").
			WithDetail("field", "file").WithCause(err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.Error(c, apperror.NewValidation("unreadable upload").WithCause(err))
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		h.Error(c, apperror.NewValidation("unreadable upload").WithCause(err))
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	t, err := h.service.AttachReceipt(c.Request.Context(), txID, finance.Receipt{
		Filename:    fh.Filename,
		Content:     content,
		ContentType: contentType,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, t)
}

// VATReport handles GET /transactions/vat-report?from=&to=
func (h *FinanceHandler) VATReport(c *gin.Context) {
	var query dto.PeriodQuery
	if !h.BindQuery(c, &query) {
		return
	}
	from, to, err := query.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}
	report, err := h.service.VATReport(c.Request.Context(), from, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// RegisterRoutes registers finance routes.
func (h *FinanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/vat-report", h.VATReport)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/receipt", h.Receipt)
}
