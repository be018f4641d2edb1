package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/dcl-platform/metamorph/internal/converter"
	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/downloader"
)

// mockKVStore provides a configurable mock for KVStore. Without overrides it
// behaves as a plain map with no expiry.
type mockKVStore struct {
	mu   sync.Mutex
	data map[string]string

	getFn      func(ctx context.Context, key string) (string, bool, error)
	mgetFn     func(ctx context.Context, keys ...string) (map[string]string, error)
	setFn      func(ctx context.Context, key, value string, ttl time.Duration) error
	setNXFn    func(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	setBatchFn func(ctx context.Context, entries map[string]string) error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string]string)}
}

func (m *mockKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockKVStore) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	if m.mgetFn != nil {
		return m.mgetFn(ctx, keys...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *mockKVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockKVStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if m.setNXFn != nil {
		return m.setNXFn(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *mockKVStore) SetBatch(ctx context.Context, entries map[string]string) error {
	if m.setBatchFn != nil {
		return m.setBatchFn(ctx, entries)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.data[k] = v
	}
	return nil
}

// mockObjectStorage provides a configurable mock for ObjectStorage.
type mockObjectStorage struct {
	mu       sync.Mutex
	uploaded []string

	uploadFn      func(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	artifactURLFn func(key string) string
}

func (m *mockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	m.uploaded = append(m.uploaded, key)
	m.mu.Unlock()
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, reader, size, contentType)
	}
	return nil
}

func (m *mockObjectStorage) ArtifactURL(key string) string {
	if m.artifactURLFn != nil {
		return m.artifactURLFn(key)
	}
	return "https://cdn.test/" + key
}

// mockJobQueue provides a configurable mock for JobQueue.
type mockJobQueue struct {
	mu       sync.Mutex
	enqueued []model.ConversionJob

	enqueueFn func(ctx context.Context, job model.ConversionJob) error
	dequeueFn func(ctx context.Context) (model.ConversionJob, error)
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job model.ConversionJob) error {
	m.mu.Lock()
	m.enqueued = append(m.enqueued, job)
	m.mu.Unlock()
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, job)
	}
	return nil
}

func (m *mockJobQueue) Dequeue(ctx context.Context) (model.ConversionJob, error) {
	if m.dequeueFn != nil {
		return m.dequeueFn(ctx)
	}
	<-ctx.Done()
	return model.ConversionJob{}, ctx.Err()
}

func (m *mockJobQueue) Close() error {
	return nil
}

func (m *mockJobQueue) jobs() []model.ConversionJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ConversionJob(nil), m.enqueued...)
}

// mockConversionCache provides a configurable mock for ConversionCache.
type mockConversionCache struct {
	storeFn      func(ctx context.Context, hash, formatName string, class model.MediaClass, etag string, maxAge *time.Duration, localPath string) error
	lookupFn     func(ctx context.Context, hash string, img model.ImageFormat, vid model.VideoFormat, forceRefresh bool, sourceURL string) (*model.CacheResult, error)
	revalidateFn func(ctx context.Context, req model.RefreshRequest) (bool, error)
}

func (m *mockConversionCache) Store(ctx context.Context, hash, formatName string, class model.MediaClass, etag string, maxAge *time.Duration, localPath string) error {
	if m.storeFn != nil {
		return m.storeFn(ctx, hash, formatName, class, etag, maxAge, localPath)
	}
	return nil
}

func (m *mockConversionCache) Lookup(ctx context.Context, hash string, img model.ImageFormat, vid model.VideoFormat, forceRefresh bool, sourceURL string) (*model.CacheResult, error) {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, hash, img, vid, forceRefresh, sourceURL)
	}
	return nil, nil
}

func (m *mockConversionCache) Revalidate(ctx context.Context, req model.RefreshRequest) (bool, error) {
	if m.revalidateFn != nil {
		return m.revalidateFn(ctx, req)
	}
	return false, nil
}

// mockHeadRevalidator provides a configurable mock for HeadRevalidator.
type mockHeadRevalidator struct {
	headFn func(ctx context.Context, url, etag string) (bool, *time.Duration, error)
}

func (m *mockHeadRevalidator) Head(ctx context.Context, url, etag string) (bool, *time.Duration, error) {
	if m.headFn != nil {
		return m.headFn(ctx, url, etag)
	}
	return true, nil, nil
}

// mockRefreshHinter records hints.
type mockRefreshHinter struct {
	mu    sync.Mutex
	hints []model.RefreshRequest
}

func (m *mockRefreshHinter) Hint(req model.RefreshRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hints = append(m.hints, req)
}

func (m *mockRefreshHinter) recorded() []model.RefreshRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.RefreshRequest(nil), m.hints...)
}

// mockDownloader provides a configurable mock for SourceDownloader.
type mockDownloader struct {
	downloadFn func(ctx context.Context, url, hash string) (downloader.Result, error)
}

func (m *mockDownloader) Download(ctx context.Context, url, hash string) (downloader.Result, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, url, hash)
	}
	return downloader.Result{}, nil
}

// mockConverter provides a configurable mock for Converter.
type mockConverter struct {
	convertFn func(ctx context.Context, inputPath, workDir string, class model.MediaClass, img model.ImageFormat, vid model.VideoFormat) (string, string, error)
}

func (m *mockConverter) Convert(ctx context.Context, inputPath, workDir string, class model.MediaClass, img model.ImageFormat, vid model.VideoFormat) (string, string, error) {
	if m.convertFn != nil {
		return m.convertFn(ctx, inputPath, workDir, class, img, vid)
	}
	return "", "", nil
}

var _ converter.Converter = (*mockConverter)(nil)
