package usecase

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dcl-platform/metamorph/internal/converter"
	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/domain/repository"
	"github.com/dcl-platform/metamorph/internal/downloader"
	"github.com/dcl-platform/metamorph/internal/infrastructure/metrics"
	"github.com/dcl-platform/metamorph/internal/infrastructure/queue"
)

// SourceDownloader fetches a conversion source into a local scratch file.
type SourceDownloader interface {
	Download(ctx context.Context, url, hash string) (downloader.Result, error)
}

// JobSource supplies conversion jobs. Satisfied by *ConversionQueue.
type JobSource interface {
	Dequeue(ctx context.Context) (model.ConversionJob, error)
}

// MediaDetector classifies a downloaded file. Satisfied by mediatype.Detect.
type MediaDetector func(path string) (model.MediaClass, error)

// WorkerPoolConfig holds configuration for the worker pool.
type WorkerPoolConfig struct {
	// Workers is the number of concurrent consumers.
	Workers int
	// TempDir is the scratch root; each job uses {TempDir}/{hash}.
	TempDir string
}

// DefaultWorkerPoolConfig returns the default configuration.
func DefaultWorkerPoolConfig(tempDir string) WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers: 5,
		TempDir: tempDir,
	}
}

// WorkerPool drains the conversion queue: download, detect, convert, store.
// Workers share no mutable state other than through KV, object storage and
// the queue. A failed job is logged and abandoned; the in-flight marker's
// TTL lets the next user request re-enqueue it.
type WorkerPool struct {
	queue  JobSource
	cache  ConversionCache
	dl     SourceDownloader
	conv   converter.Converter
	detect MediaDetector

	workers int
	tempDir string
}

// NewWorkerPool creates a worker pool.
func NewWorkerPool(q JobSource, cache ConversionCache, dl SourceDownloader, conv converter.Converter, detect MediaDetector, cfg WorkerPoolConfig) *WorkerPool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	return &WorkerPool{
		queue:   q,
		cache:   cache,
		dl:      dl,
		conv:    conv,
		detect:  detect,
		workers: workers,
		tempDir: cfg.TempDir,
	}
}

// Run starts the configured number of workers and blocks until the context
// is cancelled and all workers have observed it.
func (p *WorkerPool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		worker := i
		g.Go(func() error {
			return p.runWorker(ctx, worker)
		})
	}
	return g.Wait()
}

func (p *WorkerPool) runWorker(ctx context.Context, id int) error {
	logger := slog.Default().With(slog.Int("worker", id))
	logger.Info("worker started")

	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || queue.IsClosed(err) {
				logger.Info("worker stopping")
				return nil
			}
			if errors.Is(err, repository.ErrMalformedJob) {
				// Already removed from the queue; nothing to replay.
				logger.Error("discarding malformed job", slog.String("error", err.Error()))
				continue
			}
			logger.Error("dequeue failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if err := p.process(ctx, job); err != nil {
			logger.Error("conversion failed",
				slog.String("hash", job.Hash),
				slog.String("url", job.URL),
				slog.String("error", err.Error()),
			)
		}
	}
}

// process runs one job through download → detect → convert → store. The
// per-job scratch directory is removed on every exit path.
func (p *WorkerPool) process(ctx context.Context, job model.ConversionJob) error {
	start := time.Now()

	workDir := filepath.Join(p.tempDir, job.Hash)
	defer func() { _ = os.RemoveAll(workDir) }()

	src, err := p.dl.Download(ctx, job.URL, job.Hash)
	if err != nil {
		return err
	}

	class, err := p.detect(src.Path)
	if err != nil {
		return err
	}

	outPath, formatName, err := p.conv.Convert(ctx, src.Path, workDir, class, job.ImageFormat, job.VideoFormat)
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues(class.String(), formatName, metrics.StatusFailure).Inc()
		return err
	}

	if err := p.cache.Store(ctx, job.Hash, formatName, class, src.ETag, src.MaxAge, outPath); err != nil {
		metrics.ConversionsTotal.WithLabelValues(class.String(), formatName, metrics.StatusFailure).Inc()
		return err
	}

	p.observe(class, formatName, src.Size, time.Since(start))
	metrics.ConversionsTotal.WithLabelValues(class.String(), formatName, metrics.StatusSuccess).Inc()

	slog.Info("conversion completed",
		slog.String("hash", job.Hash),
		slog.String("class", class.String()),
		slog.String("format", formatName),
		slog.Int64("source_bytes", src.Size),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (p *WorkerPool) observe(class model.MediaClass, formatName string, size int64, elapsed time.Duration) {
	bucket := metrics.SizeBucket(size)
	switch class {
	case model.MediaClassStaticImage:
		metrics.StaticImageDuration.WithLabelValues(bucket, formatName).Observe(elapsed.Seconds())
	case model.MediaClassMotionImage:
		metrics.MotionImageDuration.WithLabelValues(bucket, formatName).Observe(elapsed.Seconds())
	case model.MediaClassMotionVideo:
		metrics.MotionVideoDuration.WithLabelValues(bucket, formatName).Observe(elapsed.Seconds())
	}
}
