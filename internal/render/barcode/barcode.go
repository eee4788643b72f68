// Package barcode builds, fetches and places the FormID barcode image.
package barcode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"pantry-intake/internal/shared/config"
)

// PointsPerInch converts inch settings to layout points.
const PointsPerInch = 72.0

// maxImageBytes bounds the barcode response body.
const maxImageBytes = 4 << 20

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Box is a placement rectangle in points, origin top-left.
type Box struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// URL returns the image service request for text.
func URL(s config.BarcodeSettings, text string) string {
	q := url.Values{}
	q.Set("text", text)
	q.Set("type", s.Type)
	q.Set("format", "png")
	q.Set("width", strconv.Itoa(s.WidthPx))
	q.Set("height", strconv.Itoa(s.HeightPx))
	q.Set("margin", "0")
	return s.ServiceURL + "?" + q.Encode()
}

// Ratio is the image aspect ratio, width over height.
func Ratio(s config.BarcodeSettings) float64 {
	return float64(s.WidthPx) / float64(s.HeightPx)
}

// Fit sizes an image of the given aspect ratio into box, aiming for targetHeight
// and shrinking to the box width when needed. The result is centered in box.
func Fit(box Box, targetHeight, ratio float64) Box {
	h := min(targetHeight, box.Height)
	w := h * ratio
	if w > box.Width {
		w = box.Width
		h = w / ratio
	}
	return Box{
		Left:   box.Left + (box.Width-w)/2,
		Top:    box.Top + (box.Height-h)/2,
		Width:  w,
		Height: h,
	}
}

// Fetch downloads the PNG at rawURL.
func Fetch(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch barcode: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch barcode: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch barcode: read: %w", err)
	}
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("fetch barcode: response is not a png")
	}
	return data, nil
}
