package v1

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar is implemented by handlers that mount their own routes.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Mount registers each handler under its path prefix. Nil handlers are skipped.
//
// Usage:
//
//	Mount(api, map[string]RouteRegistrar{
//		"/quotes":   quoteHandler,
//		"/invoices": invoiceHandler,
//	})
func Mount(rg *gin.RouterGroup, routes map[string]RouteRegistrar) {
	for prefix, handler := range routes {
		if handler == nil {
			continue
		}
		handler.RegisterRoutes(rg.Group(prefix))
	}
}
