package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"handwerk/internal/domain/files"
)

// FilesHandler serves stored signatures and receipts.
type FilesHandler struct {
	*BaseHandler
	reader files.Reader
}

// NewFilesHandler creates a new files handler.
func NewFilesHandler(base *BaseHandler, reader files.Reader) *FilesHandler {
	return &FilesHandler{BaseHandler: base, reader: reader}
}

// Get handles GET /files/*path
func (h *FilesHandler) Get(c *gin.Context) {
	obj, err := h.reader.Get(c.Request.Context(), strings.TrimPrefix(c.Param("path"), "/"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, obj.ContentType, obj.Content)
}
