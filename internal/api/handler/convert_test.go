package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/usecase"
)

// Stub cache and queue, enough to drive ConvertService through the handler.

type stubCache struct {
	lookupFn func(ctx context.Context, hash string, img model.ImageFormat, vid model.VideoFormat, forceRefresh bool, sourceURL string) (*model.CacheResult, error)
}

func (s *stubCache) Store(ctx context.Context, hash, formatName string, class model.MediaClass, etag string, maxAge *time.Duration, localPath string) error {
	return nil
}

func (s *stubCache) Lookup(ctx context.Context, hash string, img model.ImageFormat, vid model.VideoFormat, forceRefresh bool, sourceURL string) (*model.CacheResult, error) {
	if s.lookupFn != nil {
		return s.lookupFn(ctx, hash, img, vid, forceRefresh, sourceURL)
	}
	return nil, nil
}

func (s *stubCache) Revalidate(ctx context.Context, req model.RefreshRequest) (bool, error) {
	return false, nil
}

type stubQueue struct {
	enqueued  []model.ConversionJob
	enqueueFn func(ctx context.Context, job model.ConversionJob) error
}

func (s *stubQueue) Enqueue(ctx context.Context, job model.ConversionJob) error {
	s.enqueued = append(s.enqueued, job)
	if s.enqueueFn != nil {
		return s.enqueueFn(ctx, job)
	}
	return nil
}

func TestConvertHandler_Convert(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		cache          *stubCache
		wantStatusCode int
		wantLocation   string
	}{
		{
			name:   "cache hit redirects to artifact",
			target: "/convert?url=https://example.com/a.png",
			cache: &stubCache{
				lookupFn: func(ctx context.Context, hash string, img model.ImageFormat, vid model.VideoFormat, forceRefresh bool, sourceURL string) (*model.CacheResult, error) {
					return &model.CacheResult{URL: "https://cdn.test/a.ktx2"}, nil
				},
			},
			wantStatusCode: http.StatusFound,
			wantLocation:   "https://cdn.test/a.ktx2",
		},
		{
			name:           "cache miss redirects to origin while converting",
			target:         "/convert?url=https://example.com/new.png",
			cache:          &stubCache{},
			wantStatusCode: http.StatusFound,
			wantLocation:   "https://example.com/new.png",
		},
		{
			name:           "missing url",
			target:         "/convert",
			cache:          &stubCache{},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "relative url",
			target:         "/convert?url=/a.png",
			cache:          &stubCache{},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "non-http scheme",
			target:         "/convert?url=ftp://example.com/a.png",
			cache:          &stubCache{},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "unknown image format",
			target:         "/convert?url=https://example.com/a.png&imageFormat=WEBP",
			cache:          &stubCache{},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "unknown video format",
			target:         "/convert?url=https://example.com/a.png&videoFormat=WEBM",
			cache:          &stubCache{},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := usecase.NewConvertService(tt.cache, &stubQueue{}, nil)
			h := NewConvertHandler(svc)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			h.Convert(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatusCode)
			}
			if tt.wantLocation != "" {
				if got := rec.Header().Get("Location"); got != tt.wantLocation {
					t.Errorf("Location = %q, want %q", got, tt.wantLocation)
				}
			}
		})
	}
}

func TestConvertHandler_FormatsReachService(t *testing.T) {
	queue := &stubQueue{}
	svc := usecase.NewConvertService(&stubCache{}, queue, nil)
	h := NewConvertHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/convert?url=https://example.com/a.png&imageFormat=ASTC_HIGH&videoFormat=OGV", nil)
	rec := httptest.NewRecorder()
	h.Convert(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if got := rec.Header().Get("Location"); got != "https://example.com/a.png" {
		t.Errorf("Location = %q, want origin URL", got)
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(queue.enqueued))
	}
	job := queue.enqueued[0]
	if job.ImageFormat != model.ImageFormatASTCHigh {
		t.Errorf("ImageFormat = %v, want ASTC_HIGH", job.ImageFormat)
	}
	if job.VideoFormat != model.VideoFormatOGV {
		t.Errorf("VideoFormat = %v, want OGV", job.VideoFormat)
	}
}

func TestConvertHandler_EnqueueFailureRedirectsToOrigin(t *testing.T) {
	queue := &stubQueue{
		enqueueFn: func(ctx context.Context, job model.ConversionJob) error {
			return context.DeadlineExceeded
		},
	}
	svc := usecase.NewConvertService(&stubCache{}, queue, nil)
	h := NewConvertHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/convert?url=https://example.com/a.png", nil)
	rec := httptest.NewRecorder()
	h.Convert(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if got := rec.Header().Get("Location"); got != "https://example.com/a.png" {
		t.Errorf("Location = %q, want origin URL", got)
	}
}

func TestMetrics_BearerToken(t *testing.T) {
	h := Metrics("secret")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", rec.Code)
	}
}

func TestLive(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	Live(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}
