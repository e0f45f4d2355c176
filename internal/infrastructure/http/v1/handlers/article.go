package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/domain/documents"
	"handwerk/internal/infrastructure/http/v1/dto"
	"handwerk/internal/infrastructure/pricelist"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxImportSize bounds an uploaded price list.
const maxImportSize = 16 << 20

// ArticleHandler handles article catalog endpoints.
type ArticleHandler struct {
	*BaseHandler
	service *article.Service
}

// NewArticleHandler creates a new article handler.
func NewArticleHandler(base *BaseHandler, service *article.Service) *ArticleHandler {
	return &ArticleHandler{BaseHandler: base, service: service}
}

// List handles GET /articles
func (h *ArticleHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	filter, err := query.ToListFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	res, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, query.PaginationRequest, dto.FromArticle))
}

// Create handles POST /articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var req dto.ArticleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	a, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), a); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromArticle(a))
}

// Get handles GET /articles/:id
func (h *ArticleHandler) Get(c *gin.Context) {
	articleID, ok := h.ParseID(c)
	if !ok {
		return
	}
	a, err := h.service.GetByID(c.Request.Context(), articleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromArticle(a))
}

// Update handles PUT /articles/:id
func (h *ArticleHandler) Update(c *gin.Context) {
	articleID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req dto.ArticleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	a, err := h.service.GetByID(ctx, articleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(a); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Update(ctx, a); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromArticle(a))
}

// Delete handles DELETE /articles/:id
func (h *ArticleHandler) Delete(c *gin.Context) {
	articleID, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), articleID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// SuggestGross handles GET /articles/suggest-gross?net=
func (h *ArticleHandler) SuggestGross(c *gin.Context) {
	net, err := dto.ParseNumber("net", documents.Numeric(c.Query("net")))
	if err != nil {
		h.Error(c, err)
		return
	}
	gross, err := article.SuggestGross(net)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.SuggestGrossResponse{Net: net.StringFixed(2), Gross: gross.StringFixed(2)})
}

// Export handles GET /articles/export
func (h *ArticleHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if _, err := pricelist.Export(c.Request.Context(), h.service, &buf); err != nil {
		h.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="artikel.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Import handles POST /articles/import with the sheet as multipart "file"
// or as the raw request body.
func (h *ArticleHandler) Import(c *gin.Context) {
	var body io.Reader = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			h.Error(c, apperror.NewValidation("unreadable upload").WithCause(err))
			return
		}
		defer f.Close()
		body = f
	}

	rows, err := pricelist.Parse(body)
	if err != nil {
		h.Error(c, err)
		return
	}
	res, err := pricelist.Apply(c.Request.Context(), h.service, rows)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ImportResponse{
		Rows:    len(rows),
		Created: res.Created,
		Updated: res.Updated,
		Skipped: res.Skipped,
	})
}

// RegisterRoutes registers article routes.
func (h *ArticleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/suggest-gross", h.SuggestGross)
	rg.GET("/export", h.Export)
	rg.POST("/import", h.Import)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
