package intake

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pantry-intake/internal/queue"
	"pantry-intake/internal/sheets"
	"pantry-intake/internal/shared/server/respond"
	"pantry-intake/internal/shared/telemetry"
)

// Handler exposes the intake service over HTTP.
type Handler struct {
	Service *Service
	// Queue is optional. When set, submit events are enqueued instead of processed inline.
	Queue queue.Client
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, q queue.Client) *Handler {
	return &Handler{Service: svc, Queue: q}
}

// RegisterRoutes attaches submission routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/submissions", h.submit)
	rg.GET("/submissions/pending", h.pending)
	rg.POST("/submissions/:row/generate", h.generate)
	rg.GET("/submissions/:row/preview", h.preview)
}

func (h *Handler) submit(c *gin.Context) {
	var ev Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "sheet and row are required", nil)
		return
	}
	if !h.Service.Accepts(ev) {
		respond.OK(c, gin.H{"ignored": true, "row": ev.Row})
		return
	}
	requestID := c.GetString("requestId")
	if h.Queue != nil {
		msg := queue.NewMessage(ev.Sheet, ev.Row, false, requestID, time.Now())
		if err := h.Queue.Send(c.Request.Context(), msg); err != nil {
			telemetry.Error("intake.enqueue_failed", map[string]any{"row": ev.Row, "error": err, "requestId": requestID})
			respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "failed to enqueue submission", nil)
			return
		}
		respond.Accepted(c, gin.H{"queued": true, "row": ev.Row})
		return
	}
	res, _ := h.Service.HandleSubmit(WithRequestID(c.Request.Context(), requestID), ev)
	respond.OK(c, res)
}

func (h *Handler) generate(c *gin.Context) {
	row, ok := rowParam(c)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	res, err := h.Service.Generate(WithRequestID(c.Request.Context(), c.GetString("requestId")), row, force)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) preview(c *gin.Context) {
	row, ok := rowParam(c)
	if !ok {
		return
	}
	placeholders, err := h.Service.Preview(c.Request.Context(), row)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	respond.OK(c, gin.H{"row": row, "placeholders": placeholders})
}

func (h *Handler) pending(c *gin.Context) {
	rows, err := h.Service.Pending(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "sheet_unavailable", "failed to read response sheet", nil)
		return
	}
	if rows == nil {
		rows = []int{}
	}
	respond.OK(c, gin.H{"rows": rows})
}

func rowParam(c *gin.Context) (int, bool) {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil || row <= 1 {
		respond.Error(c, http.StatusBadRequest, "invalid_row", "row must be a data row number greater than 1", nil)
		return 0, false
	}
	c.Set("row", row)
	return row, true
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sheets.ErrRowOutOfRange):
		respond.Error(c, http.StatusNotFound, "row_not_found", "row not found", nil)
	case errors.Is(err, ErrMissingFormIDColumn):
		respond.Error(c, http.StatusUnprocessableEntity, "missing_form_id_column", "response sheet has no FormID column", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "generation_failed", "failed to generate form", gin.H{"error": err.Error()})
	}
}
