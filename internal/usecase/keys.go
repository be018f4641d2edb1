package usecase

import (
	"fmt"

	"github.com/dcl-platform/metamorph/internal/domain/model"
)

// Cache key shapes. Every key embeds the process-wide version integer so a
// version bump abandons all prior cache records at once.

// objectKeyKey holds the object-store key of the converted artifact.
func objectKeyKey(hash, format string, version int) string {
	return fmt.Sprintf("%s_%s_%d", hash, format, version)
}

// etagKey holds the origin entity tag, when one is known.
func etagKey(hash, format string, version int) string {
	return fmt.Sprintf("etag:%s_%s_%d", hash, format, version)
}

// validKey is the freshness marker. Present means fresh; its TTL is the
// sanitized max-age, or none for "fresh indefinitely".
func validKey(hash, format string, version int) string {
	return fmt.Sprintf("valid:%s_%s_%d", hash, format, version)
}

// filetypeKey tags a hash with its media class ("Image" or "Video") so the
// lookup path can choose the right format name without probing every enum.
func filetypeKey(hash string, version int) string {
	return fmt.Sprintf("filetype:%s_%d", hash, version)
}

// convertingKey is the in-flight marker for a conversion identity. Its
// presence dedupes enqueues; its TTL is the crash-recovery window.
func convertingKey(hash string, img model.ImageFormat, vid model.VideoFormat, version int) string {
	return fmt.Sprintf("converting:%s-%s-%s_%d", hash, img, vid, version)
}
