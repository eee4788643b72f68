// Package slides renders forms by copying a Google Slides template, merging text,
// inserting the barcode and exporting the deck as PDF into a Drive folder.
package slides

import (
	"context"
	"errors"
	"fmt"
	"strings"

	slidesapi "google.golang.org/api/slides/v1"

	"pantry-intake/internal/render"
	"pantry-intake/internal/render/barcode"
	"pantry-intake/internal/shared/config"
	"pantry-intake/internal/shared/telemetry"
)

const emuPerPoint = 12700.0

// Files is the subset of Drive used by the renderer.
type Files interface {
	Copy(ctx context.Context, srcID, name, folderID string) (string, error)
	ExportPDF(ctx context.Context, id string) ([]byte, error)
	UploadPDF(ctx context.Context, name, folderID string, data []byte) (render.StoredFile, error)
	Trash(ctx context.Context, id string) error
}

// Decks is the subset of the Slides API used by the renderer.
type Decks interface {
	Get(ctx context.Context, id string) (*slidesapi.Presentation, error)
	BatchUpdate(ctx context.Context, id string, reqs []*slidesapi.Request) error
}

// Renderer implements render.Renderer on Google Drive and Slides.
type Renderer struct {
	Files      Files
	Decks      Decks
	TemplateID string
	FolderID   string
	Barcode    config.BarcodeSettings
}

// Render merges job into a temporary copy of the template and stores the exported PDF.
func (r *Renderer) Render(ctx context.Context, job render.Job) (render.StoredFile, error) {
	if r.TemplateID == "" || r.FolderID == "" {
		return render.StoredFile{}, errors.New("slides: template and output folder are required")
	}
	tmpID, err := r.Files.Copy(ctx, r.TemplateID, "_tmp_"+job.OutputName, r.FolderID)
	if err != nil {
		return render.StoredFile{}, fmt.Errorf("slides: copy template: %w", err)
	}
	defer func() {
		// Detached: cancelled renders still trash their copy.
		if err := r.Files.Trash(context.WithoutCancel(ctx), tmpID); err != nil {
			telemetry.Warn("render.slides.trash_failed", map[string]any{"fileId": tmpID, "error": err})
		}
	}()

	if err := r.Decks.BatchUpdate(ctx, tmpID, replaceRequests(job.Placeholders)); err != nil {
		return render.StoredFile{}, fmt.Errorf("slides: merge text: %w", err)
	}

	if job.FormID != "" {
		if err := r.insertBarcode(ctx, tmpID, job.FormID); err != nil {
			telemetry.Warn("render.slides.barcode_skipped", map[string]any{"formId": job.FormID, "error": err})
		}
	}

	if err := r.clearLeftovers(ctx, tmpID); err != nil {
		telemetry.Warn("render.slides.cleanup_failed", map[string]any{"fileId": tmpID, "error": err})
	}

	data, err := r.Files.ExportPDF(ctx, tmpID)
	if err != nil {
		return render.StoredFile{}, fmt.Errorf("slides: export pdf: %w", err)
	}
	pages, err := render.VerifyPDF(data)
	if err != nil {
		return render.StoredFile{}, err
	}
	out, err := r.Files.UploadPDF(ctx, job.OutputName+".pdf", r.FolderID, data)
	if err != nil {
		return render.StoredFile{}, fmt.Errorf("slides: upload pdf: %w", err)
	}
	telemetry.Info("render.slides.done", map[string]any{"fileId": out.ID, "pages": pages, "bytes": len(data)})
	return out, nil
}

func replaceRequests(placeholders map[string]string) []*slidesapi.Request {
	keys := render.MergeKeys(placeholders)
	reqs := make([]*slidesapi.Request, 0, len(keys))
	for _, k := range keys {
		reqs = append(reqs, replaceText(k, placeholders[k]))
	}
	return reqs
}

func replaceText(find, with string) *slidesapi.Request {
	return &slidesapi.Request{ReplaceAllText: &slidesapi.ReplaceAllTextRequest{
		ContainsText:    &slidesapi.SubstringMatchCriteria{Text: find, MatchCase: true},
		ReplaceText:     with,
		ForceSendFields: []string{"ReplaceText"},
	}}
}

func (r *Renderer) insertBarcode(ctx context.Context, id, formID string) error {
	deck, err := r.Decks.Get(ctx, id)
	if err != nil {
		return err
	}
	target := r.Barcode.TargetHeightIn * barcode.PointsPerInch
	ratio := barcode.Ratio(r.Barcode)
	src := barcode.URL(r.Barcode, formID)

	var reqs []*slidesapi.Request
	for _, page := range deck.Slides {
		for _, el := range page.PageElements {
			if el.Shape == nil || !strings.Contains(textOf(el.Shape.Text), r.Barcode.Placeholder) {
				continue
			}
			box, ok := boxOf(el)
			if !ok {
				continue
			}
			fit := barcode.Fit(box, target, ratio)
			reqs = append(reqs, createImage(page.ObjectId, src, fit))
		}
	}
	if len(reqs) == 0 {
		return nil
	}
	reqs = append(reqs, replaceText(r.Barcode.Placeholder, ""))
	return r.Decks.BatchUpdate(ctx, id, reqs)
}

func createImage(pageID, src string, b barcode.Box) *slidesapi.Request {
	return &slidesapi.Request{CreateImage: &slidesapi.CreateImageRequest{
		Url: src,
		ElementProperties: &slidesapi.PageElementProperties{
			PageObjectId: pageID,
			Size: &slidesapi.Size{
				Width:  &slidesapi.Dimension{Magnitude: b.Width, Unit: "PT"},
				Height: &slidesapi.Dimension{Magnitude: b.Height, Unit: "PT"},
			},
			Transform: &slidesapi.AffineTransform{
				ScaleX: 1, ScaleY: 1,
				TranslateX: b.Left, TranslateY: b.Top,
				Unit: "PT",
			},
		},
	}}
}

// boxOf returns the rendered bounds of el in points.
func boxOf(el *slidesapi.PageElement) (barcode.Box, bool) {
	if el.Size == nil || el.Size.Width == nil || el.Size.Height == nil {
		return barcode.Box{}, false
	}
	sx, sy := 1.0, 1.0
	var tx, ty float64
	unit := "EMU"
	if tr := el.Transform; tr != nil {
		if tr.ScaleX != 0 {
			sx = tr.ScaleX
		}
		if tr.ScaleY != 0 {
			sy = tr.ScaleY
		}
		tx, ty = tr.TranslateX, tr.TranslateY
		if tr.Unit != "" {
			unit = tr.Unit
		}
	}
	return barcode.Box{
		Left:   toPoints(tx, unit),
		Top:    toPoints(ty, unit),
		Width:  toPoints(el.Size.Width.Magnitude, el.Size.Width.Unit) * sx,
		Height: toPoints(el.Size.Height.Magnitude, el.Size.Height.Unit) * sy,
	}, true
}

func toPoints(v float64, unit string) float64 {
	if unit == "PT" {
		return v
	}
	return v / emuPerPoint
}

func (r *Renderer) clearLeftovers(ctx context.Context, id string) error {
	deck, err := r.Decks.Get(ctx, id)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, page := range deck.Slides {
		for _, el := range page.PageElements {
			collectText(&b, el)
		}
	}
	tokens := render.Leftovers(b.String())
	if len(tokens) == 0 {
		return nil
	}
	reqs := make([]*slidesapi.Request, 0, len(tokens))
	for _, tok := range tokens {
		reqs = append(reqs, replaceText(tok, strings.Repeat(" ", len(tok))))
	}
	telemetry.Debug("render.slides.leftovers", map[string]any{"count": len(tokens)})
	return r.Decks.BatchUpdate(ctx, id, reqs)
}

func collectText(b *strings.Builder, el *slidesapi.PageElement) {
	switch {
	case el.Shape != nil:
		b.WriteString(textOf(el.Shape.Text))
	case el.Table != nil:
		for _, row := range el.Table.TableRows {
			for _, cell := range row.TableCells {
				b.WriteString(textOf(cell.Text))
			}
		}
	case el.ElementGroup != nil:
		for _, child := range el.ElementGroup.Children {
			collectText(b, child)
		}
	}
	b.WriteByte('\n')
}

func textOf(tc *slidesapi.TextContent) string {
	if tc == nil {
		return ""
	}
	var b strings.Builder
	for _, te := range tc.TextElements {
		if te.TextRun != nil {
			b.WriteString(te.TextRun.Content)
		}
	}
	return b.String()
}

var _ render.Renderer = (*Renderer)(nil)
