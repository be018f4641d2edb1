package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/domain/repository"
)

// contentTypes maps artifact extensions to their upload content types.
var contentTypes = map[string]string{
	".ktx2": "image/ktx2",
	".mp4":  "video/mp4",
	".ogv":  "video/ogg",
}

// ConversionCache is the system of record for "does a fresh artifact exist
// for this conversion, where is it, and is it due for revalidation?".
// Implementations: CacheEngine (object storage + KV) for production and
// LocalCache (a directory) for single-node development.
type ConversionCache interface {
	// Store uploads a converted artifact and records its cache entry,
	// overwriting previous values for the same conversion identity.
	Store(ctx context.Context, hash, formatName string, class model.MediaClass, etag string, maxAge *time.Duration, localPath string) error

	// Lookup reads the cache record for a conversion identity. It returns
	// nil when nothing is cached. When the record is expired and idle, or
	// forceRefresh is set, and sourceURL is non-empty, a refresh hint is
	// emitted asynchronously; the result is returned regardless of expiry.
	Lookup(ctx context.Context, hash string, img model.ImageFormat, vid model.VideoFormat, forceRefresh bool, sourceURL string) (*model.CacheResult, error)

	// Revalidate reports whether the cached artifact may be considered
	// fresh after this call, re-stamping the freshness marker on a 304.
	Revalidate(ctx context.Context, req model.RefreshRequest) (bool, error)
}

// HeadRevalidator issues conditional HEAD requests against the origin.
type HeadRevalidator interface {
	Head(ctx context.Context, url, etag string) (notModified bool, maxAge *time.Duration, err error)
}

// RefreshHinter accepts fire-and-forget expiry hints.
type RefreshHinter interface {
	Hint(req model.RefreshRequest)
}

// CacheEngineConfig holds configuration for the cache engine.
type CacheEngineConfig struct {
	// MinMaxAge is the minimum acceptable freshness window.
	MinMaxAge time.Duration
	// Version scopes every cache key; bumping it invalidates the whole
	// keyspace.
	Version int
}

// DefaultCacheEngineConfig returns the default configuration.
func DefaultCacheEngineConfig() CacheEngineConfig {
	return CacheEngineConfig{
		MinMaxAge: 5 * time.Minute,
		Version:   1,
	}
}

// CacheEngine implements ConversionCache over a KV metadata store plus
// object storage.
type CacheEngine struct {
	kv      repository.KVStore
	storage repository.ObjectStorage
	head    HeadRevalidator
	hints   RefreshHinter

	minMaxAge time.Duration
	version   int
}

// Compile-time verification that CacheEngine implements ConversionCache.
var _ ConversionCache = (*CacheEngine)(nil)

// NewCacheEngine creates a cache engine. head may be nil in processes that
// never revalidate; a nil storage makes Store and warm Lookups fail with
// ErrNotConfigured. Attach a refresh hinter with SetRefreshHinter once the
// pipeline exists.
func NewCacheEngine(kv repository.KVStore, storage repository.ObjectStorage, head HeadRevalidator, cfg CacheEngineConfig) *CacheEngine {
	return &CacheEngine{
		kv:        kv,
		storage:   storage,
		head:      head,
		minMaxAge: cfg.MinMaxAge,
		version:   cfg.Version,
	}
}

// SetRefreshHinter wires the refresh pipeline. The pipeline itself consumes
// this engine, so the hinter is attached after construction.
func (e *CacheEngine) SetRefreshHinter(h RefreshHinter) {
	e.hints = h
}

// Store uploads the artifact and writes the cache record. The object key
// batch (object key, media-class tag, etag) goes out in one KV operation;
// when a TTL is needed the freshness marker follows in a second write, so
// readers may briefly observe the record as expired.
func (e *CacheEngine) Store(ctx context.Context, hash, formatName string, class model.MediaClass, etag string, maxAge *time.Duration, localPath string) error {
	if e.storage == nil {
		return fmt.Errorf("%w: object storage", repository.ErrNotConfigured)
	}

	ext := filepath.Ext(localPath)
	contentType, ok := contentTypes[ext]
	if !ok {
		return fmt.Errorf("%w: %q", repository.ErrUnsupportedExtension, ext)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}

	// The timestamp component is informational; retrieval always goes
	// through the KV object-key entry.
	objectKey := fmt.Sprintf("%s-%s-%s%s", time.Now().UTC().Format("20060102-150405"), hash, formatName, ext)
	if err := e.storage.Upload(ctx, objectKey, file, info.Size(), contentType); err != nil {
		return fmt.Errorf("upload artifact: %w", err)
	}

	sanitized := e.sanitizeMaxAge(maxAge, etag)

	batch := map[string]string{
		objectKeyKey(hash, formatName, e.version): objectKey,
		filetypeKey(hash, e.version):              class.Tag(),
	}
	if etag != "" {
		batch[etagKey(hash, formatName, e.version)] = etag
	}
	if sanitized == nil {
		// Fresh indefinitely: the marker rides in the same batch.
		batch[validKey(hash, formatName, e.version)] = "1"
	}
	if err := e.kv.SetBatch(ctx, batch); err != nil {
		return fmt.Errorf("write cache record: %w", err)
	}

	if sanitized != nil {
		if err := e.kv.Set(ctx, validKey(hash, formatName, e.version), "1", *sanitized); err != nil {
			return fmt.Errorf("write freshness marker: %w", err)
		}
	}
	return nil
}

// Lookup reads the cache record for one conversion identity.
func (e *CacheEngine) Lookup(ctx context.Context, hash string, img model.ImageFormat, vid model.VideoFormat, forceRefresh bool, sourceURL string) (*model.CacheResult, error) {
	tag, ok, err := e.kv.Get(ctx, filetypeKey(hash, e.version))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	class, ok := model.ParseMediaClassTag(tag)
	if !ok {
		return nil, nil
	}

	formatName := vid.String()
	if class == model.MediaClassStaticImage {
		formatName = img.String()
	}

	objKey := objectKeyKey(hash, formatName, e.version)
	eKey := etagKey(hash, formatName, e.version)
	vKey := validKey(hash, formatName, e.version)
	cKey := convertingKey(hash, img, vid, e.version)

	vals, err := e.kv.MGet(ctx, objKey, eKey, vKey, cKey)
	if err != nil {
		return nil, err
	}

	objectKey, ok := vals[objKey]
	if !ok {
		return nil, nil
	}
	if e.storage == nil {
		return nil, fmt.Errorf("%w: object storage", repository.ErrNotConfigured)
	}

	_, fresh := vals[vKey]
	_, converting := vals[cKey]

	result := &model.CacheResult{
		URL:        e.storage.ArtifactURL(objectKey),
		ETag:       vals[eKey],
		Expired:    !fresh,
		Converting: converting,
		Format:     formatName,
	}

	if ((result.Expired && !result.Converting) || forceRefresh) && sourceURL != "" && e.hints != nil {
		// Fire-and-forget; must not delay the caller.
		e.hints.Hint(model.RefreshRequest{
			Hash:        hash,
			URL:         sourceURL,
			ImageFormat: img,
			VideoFormat: vid,
			Force:       forceRefresh,
		})
	}

	return result, nil
}

// Revalidate checks whether the cached artifact is still current, extending
// its freshness via a conditional HEAD instead of re-downloading.
func (e *CacheEngine) Revalidate(ctx context.Context, req model.RefreshRequest) (bool, error) {
	result, err := e.Lookup(ctx, req.Hash, req.ImageFormat, req.VideoFormat, false, "")
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, nil
	}
	if !req.Force && !result.Expired {
		return true, nil
	}
	if e.head == nil {
		return false, fmt.Errorf("%w: revalidation client", repository.ErrNotConfigured)
	}

	notModified, maxAge, err := e.head.Head(ctx, req.URL, result.ETag)
	if err != nil {
		// An unreachable origin counts the same as a changed one: the
		// entry is stale and the conversion gets re-enqueued.
		slog.Warn("revalidation request failed",
			"hash", req.Hash,
			"url", req.URL,
			"error", err,
		)
		return false, nil
	}
	if !notModified {
		return false, nil
	}

	sanitized := e.sanitizeMaxAge(maxAge, result.ETag)
	var ttl time.Duration
	if sanitized != nil {
		ttl = *sanitized
	}
	if err := e.kv.Set(ctx, validKey(req.Hash, result.Format, e.version), "1", ttl); err != nil {
		slog.Warn("failed to re-stamp freshness marker",
			"hash", req.Hash,
			"format", result.Format,
			"error", err,
		)
		return false, err
	}
	return true, nil
}

// sanitizeMaxAge applies the freshness-window rules: a declared max-age is
// raised to the minimum window; a known etag with no declared max-age caps
// freshness at the minimum (revalidation is cheap, so don't cache forever);
// nothing declared and no etag means cache indefinitely.
func (e *CacheEngine) sanitizeMaxAge(maxAge *time.Duration, etag string) *time.Duration {
	min := e.minMaxAge
	if maxAge == nil {
		if etag == "" {
			return nil
		}
		return &min
	}
	if *maxAge < min {
		return &min
	}
	return maxAge
}
