package intake

import (
	"context"
	"fmt"
	"strings"

	"pantry-intake/internal/sheets"
	"pantry-intake/internal/shared/telemetry"
	"pantry-intake/internal/submission"
)

// Event is a form-submit notification for one sheet row.
type Event struct {
	Sheet string `json:"sheet"`
	Row   int    `json:"row" binding:"required"`
}

// Accepts reports whether ev targets a data row of the configured sheet.
func (s *Service) Accepts(ev Event) bool {
	if ev.Row <= 1 {
		return false
	}
	return s.SheetName == "" || ev.Sheet == "" || strings.EqualFold(strings.TrimSpace(ev.Sheet), s.SheetName)
}

// HandleSubmit generates the form for a submit event. Events for other sheets or the
// header row are ignored. Failures are logged and reported in the result only.
func (s *Service) HandleSubmit(ctx context.Context, ev Event) (Result, bool) {
	if !s.Accepts(ev) {
		telemetry.Debug("intake.event_ignored", map[string]any{"sheet": ev.Sheet, "row": ev.Row})
		return Result{Row: ev.Row}, false
	}
	res, err := s.Generate(ctx, ev.Row, false)
	if err != nil {
		telemetry.Error("intake.generate_failed", map[string]any{
			"row":       ev.Row,
			"error":     err,
			"requestId": requestIDFromContext(ctx),
		})
		res.Warnings = append(res.Warnings, "generate.failed")
	}
	return res, true
}

// Pending returns data rows that have responses but no generated PDF.
func (s *Service) Pending(ctx context.Context) ([]int, error) {
	all, err := s.Rows.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("intake: read sheet: %w", err)
	}
	if len(all) < 2 {
		return nil, nil
	}
	header := all[0]
	var out []int
	for i, cells := range all[1:] {
		row := sheets.Zip(header, cells)
		if !hasResponse(row) {
			continue
		}
		if row[submission.ColGeneratedPDFID] != "" && row[submission.ColGeneratedPDFURL] != "" {
			continue
		}
		out = append(out, i+2)
	}
	return out, nil
}

// hasResponse ignores blank rows and rows holding only bookkeeping columns.
func hasResponse(row map[string]string) bool {
	return strings.TrimSpace(row[submission.ColFirstName]) != "" ||
		strings.TrimSpace(row[submission.ColLastName]) != "" ||
		strings.TrimSpace(row[submission.ColEmail]) != "" ||
		strings.TrimSpace(row[submission.ColPhone]) != ""
}
