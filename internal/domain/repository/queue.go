package repository

import (
	"context"

	"github.com/dcl-platform/metamorph/internal/domain/model"
)

// JobQueue defines the at-least-once conversion work queue.
//
// Dequeue removes the message from the queue before returning it: a consumer
// crash between dequeue and completion loses that job, and the in-flight
// marker's TTL bounds how long the loss blocks a retry. Malformed messages
// are removed as well and reported as ErrMalformedJob.
//
// Implementations: RabbitMQ for production, an in-process unbounded queue
// for single-node mode.
type JobQueue interface {
	// Enqueue serializes and publishes a job.
	Enqueue(ctx context.Context, job model.ConversionJob) error

	// Dequeue blocks until a job is available or the context is cancelled.
	Dequeue(ctx context.Context) (model.ConversionJob, error)

	// Close releases the queue connection.
	Close() error
}
