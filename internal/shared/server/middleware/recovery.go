package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"pantry-intake/internal/shared/metrics"
	"pantry-intake/internal/shared/server/respond"
	"pantry-intake/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope and logs the row being generated, if any.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			route := c.FullPath()
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"route":      route,
				"client":     WebhookClientFromContext(c),
			}
			if row, ok := c.Get("row"); ok {
				fields["row"] = row
			}
			telemetry.Error("http.panic", fields)
			metrics.IncPanic(route)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
			c.Abort()
		}()
		c.Next()
	}
}
