package forms

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pantry-intake/internal/shared/server/respond"
)

// Handler exposes generated form records over HTTP.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches form routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/forms", h.list)
	rg.GET("/forms/:id", h.get)
}

type formResponse struct {
	ID          string    `json:"id"`
	FormID      string    `json:"formId"`
	Row         int       `json:"row"`
	FileID      string    `json:"fileId"`
	URL         string    `json:"url"`
	Regenerated bool      `json:"regenerated"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toResponse(f Form) formResponse {
	return formResponse{
		ID:          f.ID,
		FormID:      f.FormID,
		Row:         f.Row,
		FileID:      f.FileID,
		URL:         f.URL,
		Regenerated: f.Regenerated,
		CreatedAt:   f.CreatedAt,
	}
}

func (h *Handler) list(c *gin.Context) {
	var (
		items []Form
		err   error
	)
	if formID := c.Query("formId"); formID != "" {
		items, err = h.Repo.ListByFormID(c.Request.Context(), formID)
	} else {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		items, err = h.Repo.List(c.Request.Context(), limit, offset)
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list forms", nil)
		return
	}
	out := make([]formResponse, 0, len(items))
	for _, f := range items {
		out = append(out, toResponse(f))
	}
	respond.OK(c, gin.H{"items": out})
}

func (h *Handler) get(c *gin.Context) {
	form, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "form not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load form", nil)
		return
	}
	respond.OK(c, toResponse(form))
}
