package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/domain/repository"
)

// MemoryQueue is an in-process, unbounded JobQueue for single-node mode.
// Enqueue never blocks; Dequeue blocks until a job arrives, the queue is
// closed, or the context is cancelled.
type MemoryQueue struct {
	mu     sync.Mutex
	jobs   []model.ConversionJob
	closed bool

	// notify wakes one blocked Dequeue when a job is appended or the
	// queue is closed. Buffered so Enqueue never blocks.
	notify chan struct{}
}

// Compile-time verification that MemoryQueue implements repository.JobQueue.
var _ repository.JobQueue = (*MemoryQueue)(nil)

var errQueueClosed = errors.New("queue closed")

// NewMemoryQueue creates an empty in-process queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		notify: make(chan struct{}, 1),
	}
}

// Enqueue appends a job. The queue grows without bound.
func (q *MemoryQueue) Enqueue(_ context.Context, job model.ConversionJob) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errQueueClosed
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	q.wake()
	return nil
}

// Dequeue removes and returns the oldest job, blocking until one is
// available.
func (q *MemoryQueue) Dequeue(ctx context.Context) (model.ConversionJob, error) {
	for {
		q.mu.Lock()
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs = q.jobs[1:]
			more := len(q.jobs) > 0
			q.mu.Unlock()
			if more {
				// Other waiters may still have work to pick up.
				q.wake()
			}
			return job, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			// Chain the close signal to the next blocked waiter.
			q.wake()
			return model.ConversionJob{}, errQueueClosed
		}

		select {
		case <-ctx.Done():
			return model.ConversionJob{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// Close unblocks all pending Dequeue calls. Remaining jobs are dropped.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wake()
	return nil
}

// Len reports the number of queued jobs. Test helper.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *MemoryQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// IsClosed reports whether err indicates a closed queue.
func IsClosed(err error) bool {
	return errors.Is(err, errQueueClosed)
}
