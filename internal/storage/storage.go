package storage

import (
	"context"
	"io"
)

// ObjectStore is the blob store used for message attachments: write a
// blob under a path, resolve a stable public URL for it.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, data io.Reader) error
	PublicURL(objectPath string) string
}
