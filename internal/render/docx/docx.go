// Package docx renders forms from a Word template and converts them to PDF with Gotenberg.
package docx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	worddoc "github.com/nguyenthenguyen/docx"

	"pantry-intake/internal/render"
	"pantry-intake/internal/render/barcode"
	"pantry-intake/internal/shared/config"
	"pantry-intake/internal/shared/storage/object"
	"pantry-intake/internal/shared/telemetry"
)

// Converter turns a .docx document into PDF bytes.
type Converter interface {
	Convert(ctx context.Context, fileName string, doc []byte) ([]byte, error)
}

// Renderer implements render.Renderer with a local template and an object store.
type Renderer struct {
	TemplatePath string
	// BarcodeImage is the zip path of the template image swapped for the barcode.
	BarcodeImage string
	Barcode      config.BarcodeSettings
	Converter    Converter
	Store        object.ObjectStore
	// Namespace prefixes stored keys.
	Namespace string
	HTTP      *http.Client
}

// Render fills the template, converts it and stores the PDF under Namespace/OutputName.pdf.
func (r *Renderer) Render(ctx context.Context, job render.Job) (render.StoredFile, error) {
	tpl, err := os.ReadFile(r.TemplatePath)
	if err != nil {
		return render.StoredFile{}, fmt.Errorf("docx: read template: %w", err)
	}
	filled, err := r.fill(ctx, tpl, job)
	if err != nil {
		return render.StoredFile{}, err
	}

	pdfBytes, err := r.Converter.Convert(ctx, job.OutputName+".docx", filled)
	if err != nil {
		return render.StoredFile{}, fmt.Errorf("docx: convert: %w", err)
	}
	pages, err := render.VerifyPDF(pdfBytes)
	if err != nil {
		return render.StoredFile{}, err
	}

	key := object.Key(r.Namespace, job.OutputName+".pdf")
	if _, err := r.Store.SaveWithKey(ctx, key, render.MimePDF, bytes.NewReader(pdfBytes)); err != nil {
		return render.StoredFile{}, fmt.Errorf("docx: store pdf: %w", err)
	}
	telemetry.Info("render.docx.done", map[string]any{"key": key, "pages": pages, "bytes": len(pdfBytes)})
	return render.StoredFile{ID: key, URL: r.Store.URL(key)}, nil
}

func (r *Renderer) fill(ctx context.Context, tpl []byte, job render.Job) ([]byte, error) {
	rd, err := worddoc.ReadDocxFromMemory(bytes.NewReader(tpl), int64(len(tpl)))
	if err != nil {
		return nil, fmt.Errorf("docx: open template: %w", err)
	}
	defer rd.Close()
	doc := rd.Editable()

	doc.SetContent(joinSplitPlaceholders(doc.GetContent()))
	for _, k := range render.MergeKeys(job.Placeholders) {
		if err := replaceAll(doc, k, job.Placeholders[k]); err != nil {
			return nil, fmt.Errorf("docx: replace %s: %w", k, err)
		}
	}

	if job.FormID != "" {
		cleanup, err := r.swapBarcode(ctx, doc, job.FormID)
		if err != nil {
			telemetry.Warn("render.docx.barcode_skipped", map[string]any{"formId": job.FormID, "error": err})
		}
		defer cleanup()
	}
	if r.Barcode.Placeholder != "" {
		if err := replaceAll(doc, r.Barcode.Placeholder, ""); err != nil {
			return nil, err
		}
	}
	doc.SetContent(clearTextLeftovers(doc.GetContent()))

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("docx: write: %w", err)
	}
	return buf.Bytes(), nil
}

func replaceAll(doc *worddoc.Docx, find, with string) error {
	if err := doc.Replace(find, with, -1); err != nil {
		return err
	}
	if err := doc.ReplaceHeader(find, with); err != nil {
		return err
	}
	return doc.ReplaceFooter(find, with)
}

// swapBarcode stages the barcode PNG on disk for doc.Write. The returned
// cleanup removes it and is always non-nil.
func (r *Renderer) swapBarcode(ctx context.Context, doc *worddoc.Docx, formID string) (func(), error) {
	noop := func() {}
	if r.BarcodeImage == "" {
		return noop, errors.New("no barcode image configured")
	}
	png, err := barcode.Fetch(ctx, r.HTTP, barcode.URL(r.Barcode, formID))
	if err != nil {
		return noop, err
	}
	f, err := os.CreateTemp("", "barcode-*.png")
	if err != nil {
		return noop, err
	}
	cleanup := func() { os.Remove(f.Name()) }
	if _, err := f.Write(png); err != nil {
		f.Close()
		return cleanup, err
	}
	if err := f.Close(); err != nil {
		return cleanup, err
	}
	if err := doc.ReplaceImage(r.BarcodeImage, f.Name()); err != nil {
		return cleanup, err
	}
	return cleanup, nil
}

var _ render.Renderer = (*Renderer)(nil)
