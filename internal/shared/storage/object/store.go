package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for saving and retrieving statement files.
type ObjectStore interface {
	// Save stores r under the owner's namespace and returns the generated storage key.
	// The key is what CRM attachments reference as their full path.
	Save(ctx context.Context, owner string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// Delete removes a stored object. Missing objects are not an error.
	Delete(ctx context.Context, storageKey string) error
}
