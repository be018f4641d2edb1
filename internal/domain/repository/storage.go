package repository

import (
	"context"
	"io"
)

// ObjectStorage defines the artifact store. Keys are caller-chosen; public
// URLs are derived from a configured endpoint prefix plus the key.
// Implementations should be provided by the infrastructure layer (e.g. MinIO).
type ObjectStorage interface {
	// Upload stores an object under the given key with the given content type.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// ArtifactURL returns the public URL for a stored key. If a CDN host is
	// configured, the authority component is rewritten to it.
	ArtifactURL(key string) string
}
