package docx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const maxPDFBytes = 32 << 20

// Gotenberg converts documents with a Gotenberg LibreOffice endpoint.
type Gotenberg struct {
	BaseURL string
	Client  *http.Client
}

// NewGotenberg returns a converter for baseURL with a bounded request timeout.
func NewGotenberg(baseURL string) *Gotenberg {
	return &Gotenberg{BaseURL: strings.TrimRight(baseURL, "/"), Client: &http.Client{Timeout: 60 * time.Second}}
}

// Convert posts doc to /forms/libreoffice/convert and returns the PDF body.
func (g *Gotenberg) Convert(ctx context.Context, fileName string, doc []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(doc); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/forms/libreoffice/convert", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gotenberg status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes))
}
