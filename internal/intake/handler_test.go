package intake

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"pantry-intake/internal/queue"
)

func newTestRouter(svc *Service, q queue.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("requestId", "req-1")
		c.Next()
	})
	NewHandler(svc, q).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSubmitEnqueues(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	q := &queue.Memory{}
	router := newTestRouter(f.svc, q)

	resp := doJSON(router, http.MethodPost, "/api/v1/submissions", Event{Sheet: "Form Responses 1", Row: 2})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	sent := q.Sent()
	if len(sent) != 1 || sent[0].Row != 2 || sent[0].RequestID != "req-1" || sent[0].Force {
		t.Fatalf("unexpected messages %+v", sent)
	}
	if len(f.renderer.jobs) != 0 {
		t.Fatalf("queued submissions must not render inline")
	}
}

func TestSubmitInline(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	router := newTestRouter(f.svc, nil)

	resp := doJSON(router, http.MethodPost, "/api/v1/submissions", Event{Row: 2})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.FormID != "100000000543" || res.FileID != "file-1" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSubmitIgnoresOtherSheets(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	q := &queue.Memory{}
	router := newTestRouter(f.svc, q)

	resp := doJSON(router, http.MethodPost, "/api/v1/submissions", Event{Sheet: "Archive", Row: 2})
	if resp.Code != http.StatusOK || len(q.Sent()) != 0 {
		t.Fatalf("expected ignored event, got %d and %d messages", resp.Code, len(q.Sent()))
	}
}

func TestSubmitRequiresRow(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	resp := doJSON(newTestRouter(f.svc, nil), http.MethodPost, "/api/v1/submissions", map[string]string{"sheet": "x"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGenerateRoute(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	router := newTestRouter(f.svc, nil)

	if resp := doJSON(router, http.MethodPost, "/api/v1/submissions/2/generate", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	resp := doJSON(router, http.MethodPost, "/api/v1/submissions/2/generate?force=true", nil)
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Regenerated {
		t.Fatalf("expected regeneration, got %+v", res)
	}
}

func TestGenerateRouteErrors(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	router := newTestRouter(f.svc, nil)

	cases := map[string]int{
		"/api/v1/submissions/abc/generate": http.StatusBadRequest,
		"/api/v1/submissions/1/generate":   http.StatusBadRequest,
		"/api/v1/submissions/9/generate":   http.StatusNotFound,
	}
	for path, want := range cases {
		if resp := doJSON(router, http.MethodPost, path, nil); resp.Code != want {
			t.Errorf("%s: expected %d, got %d", path, want, resp.Code)
		}
	}
}

func TestPreviewAndPendingRoutes(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	router := newTestRouter(f.svc, nil)

	resp := doJSON(router, http.MethodGet, "/api/v1/submissions/2/preview", nil)
	var preview struct {
		Row          int               `json:"row"`
		Placeholders map[string]string `json:"placeholders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&preview); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if preview.Row != 2 || preview.Placeholders["{{fullName}}"] != "Ada Lovelace" {
		t.Fatalf("unexpected preview %+v", preview)
	}

	resp = doJSON(router, http.MethodGet, "/api/v1/submissions/pending", nil)
	var pending struct {
		Rows []int `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pending); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pending.Rows) != 1 || pending.Rows[0] != 2 {
		t.Fatalf("unexpected pending %+v", pending)
	}
}
