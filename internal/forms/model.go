package forms

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Form records one generated intake PDF.
type Form struct {
	ID          string
	FormID      string
	Row         int
	FileID      string
	URL         string
	Regenerated bool
	CreatedAt   time.Time
}

// New builds a Form with a fresh ID.
func New(formID string, row int, fileID, url string, regenerated bool, now time.Time) (Form, error) {
	if strings.TrimSpace(formID) == "" || row < 2 || strings.TrimSpace(fileID) == "" {
		return Form{}, ErrInvalidInput
	}
	return Form{
		ID:          uuid.NewString(),
		FormID:      formID,
		Row:         row,
		FileID:      fileID,
		URL:         url,
		Regenerated: regenerated,
		CreatedAt:   now.UTC(),
	}, nil
}
