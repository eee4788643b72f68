// Package render turns a placeholder map into a stored PDF.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"pantry-intake/internal/shared/telemetry"
)

// MimePDF is the content type of rendered output.
const MimePDF = "application/pdf"

// ErrInvalidPDF is returned when exported bytes do not parse as a PDF with at least one page.
var ErrInvalidPDF = errors.New("render: output is not a valid pdf")

// Job is one render request.
type Job struct {
	Placeholders map[string]string
	// OutputName is the file name without extension.
	OutputName string
	// FormID is encoded into the barcode. Empty skips the barcode.
	FormID string
}

// StoredFile identifies the persisted PDF.
type StoredFile struct {
	ID  string
	URL string
}

// Renderer produces and stores the PDF for a job.
type Renderer interface {
	Render(ctx context.Context, job Job) (StoredFile, error)
}

// MergeKeys returns the placeholder keys to substitute, sorted. Blank keys come from guideline rows
// with an empty Placeholders cell; they are logged and skipped so the rest of the merge proceeds.
func MergeKeys(placeholders map[string]string) []string {
	keys := make([]string, 0, len(placeholders))
	for k, v := range placeholders {
		if strings.TrimSpace(k) == "" {
			telemetry.Warn("render.placeholder_blank", map[string]any{"value": v})
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var leftover = regexp.MustCompile(`\{\{[^}]+\}\}`)

// ClearLeftovers blanks any unreplaced {{token}} with spaces of equal length so layout holds.
func ClearLeftovers(s string) string {
	return leftover.ReplaceAllStringFunc(s, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}

// TokenSpans returns the byte ranges of every {{token}} in s.
func TokenSpans(s string) [][]int {
	return leftover.FindAllStringIndex(s, -1)
}

// Leftovers returns the distinct unreplaced tokens in s, in first-seen order.
func Leftovers(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range leftover.FindAllString(s, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// VerifyPDF checks data is a readable PDF and returns its page count.
func VerifyPDF(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPDF)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	n := r.NumPage()
	if n < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return n, nil
}
