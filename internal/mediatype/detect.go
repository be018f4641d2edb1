// Package mediatype classifies downloaded files from their header bytes,
// without reading the whole file.
package mediatype

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/domain/repository"
)

// headerWindow is how much of the file the detector inspects.
const headerWindow = 4096

var (
	svgPrefix = []byte("<svg ")

	// Animated WebP containers carry an ANIM chunk (global animation
	// parameters) and ANMF chunks (frames) early in the file.
	webpAnimChunk  = []byte("ANIM")
	webpFrameChunk = []byte("ANMF")
)

// Detect classifies a local file into a media class by sniffing its first
// 4 KiB. Unclassifiable input yields MediaClassOther and ErrUnknownFileType.
func Detect(path string) (model.MediaClass, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.MediaClassOther, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, headerWindow)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return model.MediaClassOther, fmt.Errorf("read header: %w", err)
	}

	class := Classify(buf[:n])
	if class == model.MediaClassOther {
		return class, repository.ErrUnknownFileType
	}
	return class, nil
}

// Classify maps header bytes to a media class.
func Classify(header []byte) model.MediaClass {
	if bytes.HasPrefix(header, svgPrefix) {
		return model.MediaClassStaticImage
	}

	contentType := http.DetectContentType(header)
	if i := strings.IndexByte(contentType, ';'); i != -1 {
		contentType = contentType[:i]
	}

	switch {
	case contentType == "image/webp":
		if bytes.Contains(header, webpAnimChunk) || bytes.Contains(header, webpFrameChunk) {
			return model.MediaClassMotionImage
		}
		return model.MediaClassStaticImage
	case contentType == "image/gif":
		// The video encoder consumes GIF natively.
		return model.MediaClassMotionVideo
	case strings.HasPrefix(contentType, "image/"):
		return model.MediaClassStaticImage
	case strings.HasPrefix(contentType, "video/"):
		return model.MediaClassMotionVideo
	default:
		return model.MediaClassOther
	}
}
