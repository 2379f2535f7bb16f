package images

import (
	"context"
	"io"
)

// Store is the blob-store surface the importer writes card images through.
// Uploaded objects are publicly readable via the HTTP API with a one-year
// cache-control header.
type Store interface {
	// Upload stores bytes under the given path and returns the public URL
	Upload(ctx context.Context, data []byte, path string, contentType string) (string, error)

	// Delete removes the object behind a public URL; returns false when the
	// object did not exist
	Delete(ctx context.Context, publicURL string) (bool, error)

	// Exists reports whether an object exists behind a public URL
	Exists(ctx context.Context, publicURL string) (bool, error)

	// Serve streams the object with the given filename to w and returns its
	// content type
	Serve(ctx context.Context, filename string, w io.Writer) (string, error)
}
