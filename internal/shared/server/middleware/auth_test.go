package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newAuthRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WebhookAuth(token))
	router.POST("/api/v1/submissions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"client": WebhookClientFromContext(c)})
	})
	return router
}

func TestWebhookAuthAcceptsBearerAndHeader(t *testing.T) {
	router := newAuthRouter("s3cret")

	for _, set := range []func(*http.Request){
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer s3cret") },
		func(r *http.Request) { r.Header.Set("X-Webhook-Token", "s3cret") },
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", nil)
		set(req)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
	}
}

func TestWebhookAuthRejects(t *testing.T) {
	router := newAuthRouter("s3cret")
	cases := map[string]string{
		"":             "",
		"Bearer wrong": "Authorization",
		"Basic s3cret": "Authorization",
		"Bearer ":      "Authorization",
	}
	for value, header := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", nil)
		if header != "" {
			req.Header.Set(header, value)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", value, resp.Code)
		}
	}
}

func TestWebhookAuthDisabledWithoutToken(t *testing.T) {
	router := newAuthRouter("")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}
