package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
)

// requestContext returns the incoming request context. Handlers invoked
// outside an HTTP request, as in direct unit calls, get Background.
func requestContext(c *gin.Context) context.Context {
	if c != nil && c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}
