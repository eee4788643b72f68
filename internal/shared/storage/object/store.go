package object

import (
	"context"
	"io"
	"path"
)

// ObjectStore saves and serves generated documents.
type ObjectStore interface {
	// Save writes r under namespace with a random prefix and returns the storage key.
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// URL returns a link for the stored object.
	URL(storageKey string) string
}

// Key joins key segments with forward slashes.
func Key(parts ...string) string {
	return path.Join(parts...)
}
