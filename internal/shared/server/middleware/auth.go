package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pantry-intake/internal/shared/server/respond"
	"pantry-intake/internal/shared/util"
)

const (
	webhookClientKey = "webhookClient"
	// anonymousClient is recorded when no webhook token is configured.
	anonymousClient = "anonymous"
	clientIDLength  = 12
)

// WebhookAuth checks the shared webhook token sent as a Bearer token or in
// X-Webhook-Token. An empty token disables the check, which is only meant for
// local runs. The hashed token prefix is stored as the client identity.
func WebhookAuth(token string) gin.HandlerFunc {
	want := ""
	if token != "" {
		want = util.HashKey(token)
	}
	return func(c *gin.Context) {
		if want == "" {
			c.Set(webhookClientKey, anonymousClient)
			c.Next()
			return
		}

		got := strings.TrimSpace(c.GetHeader("X-Webhook-Token"))
		if got == "" {
			authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			got = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		}
		hashed := util.HashKey(got)
		if got == "" || subtle.ConstantTimeCompare([]byte(hashed), []byte(want)) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(webhookClientKey, hashed[:clientIDLength])
		c.Next()
	}
}

// WebhookClientFromContext fetches the client identity set by WebhookAuth.
func WebhookClientFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(webhookClientKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
