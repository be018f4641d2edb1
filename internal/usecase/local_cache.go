package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/domain/repository"
)

// knownExtensions are the artifact extensions a local lookup probes for.
var knownExtensions = []string{".ktx2", ".mp4", ".ogv"}

// LocalCache implements ConversionCache over a plain directory. Development
// only: artifacts are stored as {hash}{ext}, there is no freshness tracking
// and revalidation always succeeds for present artifacts.
type LocalCache struct {
	dir     string
	baseURL string
}

// Compile-time verification that LocalCache implements ConversionCache.
var _ ConversionCache = (*LocalCache)(nil)

// NewLocalCache creates a directory-backed cache. baseURL is the public
// prefix artifact URLs are built from and must end with a slash.
func NewLocalCache(dir, baseURL string) (*LocalCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalCache{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the cache directory, for serving artifacts over HTTP.
func (c *LocalCache) Dir() string {
	return c.dir
}

// Store copies the artifact into the cache directory as {hash}{ext}.
func (c *LocalCache) Store(_ context.Context, hash, _ string, _ model.MediaClass, _ string, _ *time.Duration, localPath string) error {
	ext := filepath.Ext(localPath)
	if _, ok := contentTypes[ext]; !ok {
		return fmt.Errorf("%w: %q", repository.ErrUnsupportedExtension, ext)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(filepath.Join(c.dir, hash+ext))
	if err != nil {
		return fmt.Errorf("create cached artifact: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("copy artifact: %w", err)
	}
	return dst.Close()
}

// Lookup scans the known extensions for a file named {hash}.{ext}.
func (c *LocalCache) Lookup(_ context.Context, hash string, img model.ImageFormat, vid model.VideoFormat, _ bool, _ string) (*model.CacheResult, error) {
	for _, ext := range knownExtensions {
		name := hash + ext
		if _, err := os.Stat(filepath.Join(c.dir, name)); err != nil {
			continue
		}

		formatName := vid.String()
		if ext == ".ktx2" {
			formatName = img.String()
		}
		return &model.CacheResult{
			URL:    c.baseURL + name,
			Format: formatName,
		}, nil
	}
	return nil, nil
}

// Revalidate reports whether the artifact exists; local artifacts never
// go stale.
func (c *LocalCache) Revalidate(ctx context.Context, req model.RefreshRequest) (bool, error) {
	result, err := c.Lookup(ctx, req.Hash, req.ImageFormat, req.VideoFormat, false, "")
	if err != nil {
		return false, err
	}
	return result != nil, nil
}
