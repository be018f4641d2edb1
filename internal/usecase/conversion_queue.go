package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/domain/repository"
)

// DefaultInFlightTTL bounds how long a claimed conversion blocks duplicate
// enqueues. It is also the crash-recovery window for lost jobs.
const DefaultInFlightTTL = 10 * time.Minute

// ConversionQueueConfig holds configuration for the queue façade.
type ConversionQueueConfig struct {
	// InFlightTTL is the lifetime of the dedupe marker.
	InFlightTTL time.Duration
	// Version scopes the marker keys, matching the cache engine's version.
	Version int
}

// DefaultConversionQueueConfig returns the default configuration.
func DefaultConversionQueueConfig() ConversionQueueConfig {
	return ConversionQueueConfig{
		InFlightTTL: DefaultInFlightTTL,
		Version:     1,
	}
}

// ConversionQueue wraps the backend job queue with a KV-backed single-flight
// guard keyed by conversion identity.
type ConversionQueue struct {
	backend repository.JobQueue
	kv      repository.KVStore // nil in pure single-node mode: dedupe skipped

	inFlightTTL time.Duration
	version     int
}

// NewConversionQueue creates the queue façade. kv may be nil, in which case
// enqueues are not deduped; acceptable only when a single worker pool exists.
func NewConversionQueue(backend repository.JobQueue, kv repository.KVStore, cfg ConversionQueueConfig) *ConversionQueue {
	ttl := cfg.InFlightTTL
	if ttl <= 0 {
		ttl = DefaultInFlightTTL
	}
	return &ConversionQueue{
		backend:     backend,
		kv:          kv,
		inFlightTTL: ttl,
		version:     cfg.Version,
	}
}

// Enqueue publishes a job unless its conversion identity is already claimed.
// The in-flight marker is the source of truth for dedupe; it is not cleaned
// up on publish failure — its TTL is the recovery mechanism.
func (q *ConversionQueue) Enqueue(ctx context.Context, job model.ConversionJob) error {
	if q.kv != nil {
		key := convertingKey(job.Hash, job.ImageFormat, job.VideoFormat, q.version)
		claimed, err := q.kv.SetNX(ctx, key, "1", q.inFlightTTL)
		if err != nil {
			return fmt.Errorf("claim in-flight marker: %w", err)
		}
		if !claimed {
			slog.Debug("conversion already in flight, skipping enqueue",
				"hash", job.Hash,
				"image_format", job.ImageFormat.String(),
				"video_format", job.VideoFormat.String(),
			)
			return nil
		}
	}

	if err := q.backend.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Dequeue blocks until a job is available. The message is already removed
// from the backend when this returns.
func (q *ConversionQueue) Dequeue(ctx context.Context) (model.ConversionJob, error) {
	return q.backend.Dequeue(ctx)
}
