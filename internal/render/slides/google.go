package slides

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	slidesapi "google.golang.org/api/slides/v1"

	"pantry-intake/internal/render"
)

// Scopes needed by the Drive and Slides adapters.
var Scopes = []string{drive.DriveScope, slidesapi.PresentationsScope}

// DriveFiles adapts the Drive v3 client to Files.
type DriveFiles struct {
	svc *drive.Service
}

// SlidesDecks adapts the Slides v1 client to Decks.
type SlidesDecks struct {
	svc *slidesapi.Service
}

// NewGoogle builds both adapters from shared client options.
func NewGoogle(ctx context.Context, opts ...option.ClientOption) (*DriveFiles, *SlidesDecks, error) {
	d, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("drive client: %w", err)
	}
	s, err := slidesapi.NewService(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("slides client: %w", err)
	}
	return &DriveFiles{svc: d}, &SlidesDecks{svc: s}, nil
}

// Copy duplicates srcID into folderID and returns the new file id.
func (d *DriveFiles) Copy(ctx context.Context, srcID, name, folderID string) (string, error) {
	f, err := d.svc.Files.Copy(srcID, &drive.File{Name: name, Parents: []string{folderID}}).
		SupportsAllDrives(true).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return f.Id, nil
}

// ExportPDF downloads id converted to PDF.
func (d *DriveFiles) ExportPDF(ctx context.Context, id string) ([]byte, error) {
	resp, err := d.svc.Files.Export(id, render.MimePDF).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// UploadPDF creates a PDF file in folderID.
func (d *DriveFiles) UploadPDF(ctx context.Context, name, folderID string, data []byte) (render.StoredFile, error) {
	f, err := d.svc.Files.Create(&drive.File{Name: name, Parents: []string{folderID}, MimeType: render.MimePDF}).
		Media(bytes.NewReader(data)).
		SupportsAllDrives(true).Fields("id", "webViewLink").Context(ctx).Do()
	if err != nil {
		return render.StoredFile{}, err
	}
	return render.StoredFile{ID: f.Id, URL: f.WebViewLink}, nil
}

// Trash moves id to the trash.
func (d *DriveFiles) Trash(ctx context.Context, id string) error {
	_, err := d.svc.Files.Update(id, &drive.File{Trashed: true}).SupportsAllDrives(true).Context(ctx).Do()
	return err
}

// Get fetches the full presentation.
func (s *SlidesDecks) Get(ctx context.Context, id string) (*slidesapi.Presentation, error) {
	return s.svc.Presentations.Get(id).Context(ctx).Do()
}

// BatchUpdate applies reqs atomically.
func (s *SlidesDecks) BatchUpdate(ctx context.Context, id string, reqs []*slidesapi.Request) error {
	if len(reqs) == 0 {
		return nil
	}
	_, err := s.svc.Presentations.BatchUpdate(id, &slidesapi.BatchUpdatePresentationRequest{Requests: reqs}).Context(ctx).Do()
	return err
}
