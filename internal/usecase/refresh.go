package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/infrastructure/metrics"
)

// JobSink accepts conversion jobs. Satisfied by *ConversionQueue.
type JobSink interface {
	Enqueue(ctx context.Context, job model.ConversionJob) error
}

// RefreshPipelineConfig holds configuration for the refresh pipeline.
type RefreshPipelineConfig struct {
	// BufferSize bounds the hint channel. Hints beyond it are dropped;
	// the next lookup re-emits them.
	BufferSize int
	// DrainTimeout bounds how long Run keeps processing buffered hints
	// after its context is cancelled.
	DrainTimeout time.Duration
}

// DefaultRefreshPipelineConfig returns the default configuration.
func DefaultRefreshPipelineConfig() RefreshPipelineConfig {
	return RefreshPipelineConfig{
		BufferSize:   1024,
		DrainTimeout: 5 * time.Second,
	}
}

// RefreshPipeline turns expiry hints into revalidations and, when the origin
// has changed, re-enqueued conversions. Hints for the same conversion
// identity collapse while one is pending, so a hot expired entry costs one
// revalidation rather than one per request.
type RefreshPipeline struct {
	cache ConversionCache
	queue JobSink

	hints        chan model.RefreshRequest
	drainTimeout time.Duration

	mu      sync.Mutex
	pending map[model.RefreshRequest]struct{}
}

// Compile-time verification that RefreshPipeline implements RefreshHinter.
var _ RefreshHinter = (*RefreshPipeline)(nil)

// NewRefreshPipeline creates a refresh pipeline. Run must be started for
// hints to be consumed.
func NewRefreshPipeline(cache ConversionCache, queue JobSink, cfg RefreshPipelineConfig) *RefreshPipeline {
	size := cfg.BufferSize
	if size <= 0 {
		size = 1024
	}
	drain := cfg.DrainTimeout
	if drain <= 0 {
		drain = 5 * time.Second
	}
	return &RefreshPipeline{
		cache:        cache,
		queue:        queue,
		hints:        make(chan model.RefreshRequest, size),
		drainTimeout: drain,
		pending:      make(map[model.RefreshRequest]struct{}),
	}
}

// Hint submits an expiry hint. It never blocks: duplicates of a pending hint
// and hints that would overflow the buffer are dropped.
func (p *RefreshPipeline) Hint(req model.RefreshRequest) {
	p.mu.Lock()
	if _, dup := p.pending[req]; dup {
		p.mu.Unlock()
		metrics.RefreshHintsTotal.WithLabelValues(metrics.RefreshDeduped).Inc()
		return
	}
	p.pending[req] = struct{}{}
	p.mu.Unlock()

	select {
	case p.hints <- req:
		metrics.RefreshHintsTotal.WithLabelValues(metrics.RefreshQueued).Inc()
	default:
		p.forget(req)
		metrics.RefreshHintsTotal.WithLabelValues(metrics.RefreshDropped).Inc()
		slog.Warn("refresh hint dropped, buffer full", "hash", req.Hash)
	}
}

// Run consumes hints until the context is cancelled, then drains what is
// already buffered under a soft deadline.
func (p *RefreshPipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case req := <-p.hints:
			p.handle(ctx, req)
		}
	}
}

func (p *RefreshPipeline) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), p.drainTimeout)
	defer cancel()
	for {
		select {
		case req := <-p.hints:
			p.handle(ctx, req)
			if ctx.Err() != nil {
				return
			}
		default:
			return
		}
	}
}

// handle revalidates one conversion identity and re-enqueues it when the
// origin no longer matches the cached artifact.
func (p *RefreshPipeline) handle(ctx context.Context, req model.RefreshRequest) {
	p.forget(req)

	fresh, err := p.cache.Revalidate(ctx, req)
	if err != nil {
		slog.Warn("revalidation failed",
			"hash", req.Hash,
			"url", req.URL,
			"error", err,
		)
		return
	}
	if fresh {
		return
	}

	if err := p.queue.Enqueue(ctx, req.Job()); err != nil {
		slog.Error("failed to re-enqueue stale conversion",
			"hash", req.Hash,
			"error", err,
		)
		return
	}
	slog.Info("stale conversion re-enqueued", "hash", req.Hash, "url", req.URL)
}

func (p *RefreshPipeline) forget(req model.RefreshRequest) {
	p.mu.Lock()
	delete(p.pending, req)
	p.mu.Unlock()
}
