package usecase

import (
	"context"
	"log/slog"

	"github.com/dcl-platform/metamorph/internal/domain/model"
)

// ConvertInput is a validated conversion request.
type ConvertInput struct {
	URL          string
	ImageFormat  model.ImageFormat
	VideoFormat  model.VideoFormat
	Wait         bool
	ForceRefresh bool
}

// ConvertOutcome tells the handler how to answer. Exactly one of the two
// shapes applies: a redirect target, or an accepted-for-processing signal.
type ConvertOutcome struct {
	// RedirectURL is where to send the client. Empty only when Accepted.
	RedirectURL string
	// Accepted means the caller waited, the wait budget ran out and the
	// conversion is still queued. Non-waiting misses redirect to the
	// original URL instead.
	Accepted bool
}

// ConvertService is the request-path orchestrator: consult the cache, queue
// work on a miss, optionally wait for the result. Infrastructure trouble
// degrades to redirecting clients at the original source rather than failing
// the request.
type ConvertService struct {
	cache  ConversionCache
	queue  JobSink
	waiter *Waiter
}

// NewConvertService creates the service. waiter may be nil, in which case
// wait requests behave as non-waiting ones.
func NewConvertService(cache ConversionCache, queue JobSink, waiter *Waiter) *ConvertService {
	return &ConvertService{
		cache:  cache,
		queue:  queue,
		waiter: waiter,
	}
}

// Convert resolves one conversion request. It never returns an error; every
// failure path resolves to a usable outcome for the client.
func (s *ConvertService) Convert(ctx context.Context, in ConvertInput) ConvertOutcome {
	hash := model.HashURL(in.URL)
	logger := slog.Default().With(slog.String("hash", hash), slog.String("url", in.URL))

	result, err := s.cache.Lookup(ctx, hash, in.ImageFormat, in.VideoFormat, in.ForceRefresh, in.URL)
	if err != nil {
		// Treat a broken cache as a miss; the original URL still works.
		logger.Warn("cache lookup failed", slog.String("error", err.Error()))
		result = nil
	}
	if result != nil {
		return ConvertOutcome{RedirectURL: result.URL}
	}

	job := model.ConversionJob{
		Hash:        hash,
		URL:         in.URL,
		ImageFormat: in.ImageFormat,
		VideoFormat: in.VideoFormat,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		logger.Error("enqueue failed", slog.String("error", err.Error()))
		return ConvertOutcome{RedirectURL: in.URL}
	}

	if !in.Wait || s.waiter == nil {
		// The client sees the original media while the conversion runs;
		// a later request picks up the artifact.
		return ConvertOutcome{RedirectURL: in.URL}
	}

	result, err = s.waiter.Wait(ctx, hash, in.ImageFormat, in.VideoFormat)
	if err != nil {
		logger.Warn("wait failed", slog.String("error", err.Error()))
		return ConvertOutcome{RedirectURL: in.URL}
	}
	if result == nil {
		// Wait budget exhausted; the job is still queued.
		return ConvertOutcome{Accepted: true}
	}
	return ConvertOutcome{RedirectURL: result.URL}
}
