package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/downloader"
	"github.com/dcl-platform/metamorph/internal/infrastructure/queue"
)

func TestWorkerPool_ProcessesJob(t *testing.T) {
	tempDir := t.TempDir()

	dl := &mockDownloader{
		downloadFn: func(ctx context.Context, url, hash string) (downloader.Result, error) {
			dir := filepath.Join(tempDir, hash)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return downloader.Result{}, err
			}
			path := filepath.Join(dir, "source.png")
			if err := os.WriteFile(path, []byte("png-bytes"), 0644); err != nil {
				return downloader.Result{}, err
			}
			return downloader.Result{Path: path, Size: 9, ETag: `"v1"`}, nil
		},
	}
	conv := &mockConverter{
		convertFn: func(ctx context.Context, inputPath, workDir string, class model.MediaClass, img model.ImageFormat, vid model.VideoFormat) (string, string, error) {
			out := filepath.Join(workDir, "out.ktx2")
			if err := os.WriteFile(out, []byte("ktx2-bytes"), 0644); err != nil {
				return "", "", err
			}
			return out, img.String(), nil
		},
	}
	detect := func(path string) (model.MediaClass, error) {
		return model.MediaClassStaticImage, nil
	}

	var stored atomic.Int32
	storedCh := make(chan struct{}, 1)
	cache := &mockConversionCache{
		storeFn: func(ctx context.Context, hash, formatName string, class model.MediaClass, etag string, maxAge *time.Duration, localPath string) error {
			if formatName != "ASTC" {
				t.Errorf("formatName = %q, want ASTC", formatName)
			}
			if class != model.MediaClassStaticImage {
				t.Errorf("class = %v, want StaticImage", class)
			}
			if etag != `"v1"` {
				t.Errorf("etag = %q, want %q", etag, `"v1"`)
			}
			stored.Add(1)
			storedCh <- struct{}{}
			return nil
		},
	}

	q := queue.NewMemoryQueue()
	job := model.NewConversionJob("https://example.com/a.png", model.ImageFormatASTC, model.VideoFormatMP4)
	if err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	pool := NewWorkerPool(q, cache, dl, conv, detect, WorkerPoolConfig{Workers: 1, TempDir: tempDir})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	select {
	case <-storedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("job was never stored")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if stored.Load() != 1 {
		t.Errorf("stored %d artifacts, want 1", stored.Load())
	}
	// The per-job scratch directory must be cleaned up.
	if _, err := os.Stat(filepath.Join(tempDir, job.Hash)); !os.IsNotExist(err) {
		t.Errorf("scratch dir still exists: stat err = %v", err)
	}
}

func TestWorkerPool_FailedJobDoesNotStopWorker(t *testing.T) {
	tempDir := t.TempDir()

	var downloads atomic.Int32
	okCh := make(chan struct{}, 1)
	dl := &mockDownloader{
		downloadFn: func(ctx context.Context, url, hash string) (downloader.Result, error) {
			if downloads.Add(1) == 1 {
				return downloader.Result{}, errors.New("origin returned 500")
			}
			path := filepath.Join(tempDir, "second-source")
			if err := os.WriteFile(path, []byte("bytes"), 0644); err != nil {
				return downloader.Result{}, err
			}
			return downloader.Result{Path: path, Size: 5}, nil
		},
	}
	conv := &mockConverter{
		convertFn: func(ctx context.Context, inputPath, workDir string, class model.MediaClass, img model.ImageFormat, vid model.VideoFormat) (string, string, error) {
			return filepath.Join(tempDir, "out.mp4"), vid.String(), nil
		},
	}
	detect := func(path string) (model.MediaClass, error) {
		return model.MediaClassMotionVideo, nil
	}
	cache := &mockConversionCache{
		storeFn: func(ctx context.Context, hash, formatName string, class model.MediaClass, etag string, maxAge *time.Duration, localPath string) error {
			okCh <- struct{}{}
			return nil
		},
	}

	q := queue.NewMemoryQueue()
	if err := q.Enqueue(context.Background(), model.NewConversionJob("https://example.com/bad.gif", model.ImageFormatUASTC, model.VideoFormatMP4)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(context.Background(), model.NewConversionJob("https://example.com/good.gif", model.ImageFormatUASTC, model.VideoFormatMP4)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	pool := NewWorkerPool(q, cache, dl, conv, detect, WorkerPoolConfig{Workers: 1, TempDir: tempDir})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	select {
	case <-okCh:
	case <-time.After(2 * time.Second):
		t.Fatal("second job never completed after first failed")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestWorkerPool_StopsOnQueueClose(t *testing.T) {
	q := queue.NewMemoryQueue()
	pool := NewWorkerPool(q, &mockConversionCache{}, &mockDownloader{}, &mockConverter{}, func(string) (model.MediaClass, error) {
		return model.MediaClassOther, nil
	}, WorkerPoolConfig{Workers: 3, TempDir: t.TempDir()})

	done := make(chan error, 1)
	go func() { done <- pool.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop after queue close")
	}
}
