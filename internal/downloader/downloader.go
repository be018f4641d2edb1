// Package downloader fetches conversion sources from their origin with a
// hard byte cap and exposes the HTTP caching metadata (ETag, max-age) the
// cache engine needs for revalidation.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dcl-platform/metamorph/internal/domain/repository"
)

// Config holds configuration for the downloader.
type Config struct {
	// MaxBytes is the hard cap on a source body. Exceeding it aborts the
	// stream and deletes the partial file.
	MaxBytes int64
	// TempDir is the root under which per-hash scratch directories are
	// created.
	TempDir string
	// HeadTimeout bounds revalidation HEAD requests.
	HeadTimeout time.Duration
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig(tempDir string) Config {
	return Config{
		MaxBytes:    100 << 20,
		TempDir:     tempDir,
		HeadTimeout: 10 * time.Second,
	}
}

// Result describes a completed download.
type Result struct {
	// Path is the local file the body was written to.
	Path string
	// Size is the number of bytes written.
	Size int64
	// ETag is the origin entity tag, if any.
	ETag string
	// MaxAge is the origin's declared freshness window. nil when the origin
	// sent no max-age; zero when it sent no-cache.
	MaxAge *time.Duration
}

// Client issues origin GET and HEAD requests.
type Client struct {
	get      *http.Client
	head     *http.Client
	maxBytes int64
	tempDir  string
}

// New creates a downloader.
func New(cfg Config) *Client {
	headTimeout := cfg.HeadTimeout
	if headTimeout <= 0 {
		headTimeout = 10 * time.Second
	}
	return &Client{
		get:      &http.Client{},
		head:     &http.Client{Timeout: headTimeout},
		maxBytes: cfg.MaxBytes,
		tempDir:  cfg.TempDir,
	}
}

// Download streams the source at rawURL into {TempDir}/{hash}/source{ext}.
// The caller owns the per-hash directory and is expected to remove it when
// the job finishes, on every exit path.
func (c *Client) Download(ctx context.Context, rawURL, hash string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.get.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", repository.ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("%w: status %d", repository.ErrDownloadFailed, resp.StatusCode)
	}

	dir := filepath.Join(c.tempDir, hash)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Result{}, fmt.Errorf("create scratch dir: %w", err)
	}

	localPath := filepath.Join(dir, "source"+extFromURL(rawURL))
	file, err := os.Create(localPath)
	if err != nil {
		return Result{}, fmt.Errorf("create local file: %w", err)
	}

	// Read one byte past the cap so an exactly-at-cap body still passes.
	written, err := io.Copy(file, io.LimitReader(resp.Body, c.maxBytes+1))
	if cerr := file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(localPath)
		return Result{}, fmt.Errorf("copy body: %w", err)
	}
	if written > c.maxBytes {
		_ = os.Remove(localPath)
		return Result{}, fmt.Errorf("%w: more than %d bytes", repository.ErrDownloadTooLarge, c.maxBytes)
	}

	return Result{
		Path:   localPath,
		Size:   written,
		ETag:   resp.Header.Get("ETag"),
		MaxAge: parseMaxAge(resp.Header.Get("Cache-Control")),
	}, nil
}

// Head issues a conditional HEAD with If-None-Match. It reports whether the
// origin answered 304 Not Modified, along with the response's max-age.
// Any other status, including transport failure, reports false.
func (c *Client) Head(ctx context.Context, rawURL, etag string) (bool, *time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false, nil, fmt.Errorf("build request: %w", err)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.head.Do(req)
	if err != nil {
		return false, nil, fmt.Errorf("head request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotModified {
		return false, nil, nil
	}
	return true, parseMaxAge(resp.Header.Get("Cache-Control")), nil
}

// parseMaxAge extracts the max-age directive from a Cache-Control header.
// no-cache maps to a zero duration, which the cache engine's sanitizer
// raises to its minimum window.
func parseMaxAge(header string) *time.Duration {
	if header == "" {
		return nil
	}

	var noCache bool
	var maxAge *time.Duration
	for _, part := range strings.Split(header, ",") {
		directive := strings.TrimSpace(strings.ToLower(part))
		if directive == "no-cache" || directive == "no-store" {
			noCache = true
			continue
		}
		if value, ok := strings.CutPrefix(directive, "max-age="); ok {
			secs, err := strconv.ParseInt(value, 10, 64)
			if err != nil || secs < 0 {
				continue
			}
			d := time.Duration(secs) * time.Second
			maxAge = &d
		}
	}

	if noCache {
		zero := time.Duration(0)
		return &zero
	}
	return maxAge
}

// extFromURL derives a filename extension from the URL path, so media tools
// that glance at extensions see a familiar name. Classification itself is
// content-based.
func extFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(u.Path)
	if len(ext) > 8 {
		return ""
	}
	return ext
}
