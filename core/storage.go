package core

import (
	"context"
	"io"
)

// FileStore is any service that can persist uploaded files and serve them back
// through a public URL.
type FileStore interface {
	// Upload stores the content under `key` and returns its public URL.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
