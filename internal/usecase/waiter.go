package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dcl-platform/metamorph/internal/domain/model"
)

// WaiterConfig holds configuration for the synchronous-wait path.
type WaiterConfig struct {
	// WaitTimeout is the longest a request will block for a conversion.
	WaitTimeout time.Duration
	// PollInterval is the cache re-check cadence while waiting.
	PollInterval time.Duration
}

// DefaultWaiterConfig returns the default configuration.
func DefaultWaiterConfig() WaiterConfig {
	return WaiterConfig{
		WaitTimeout:  20 * time.Second,
		PollInterval: 100 * time.Millisecond,
	}
}

// Waiter blocks requests until a conversion lands in the cache or a timeout
// elapses. Concurrent waits on the same conversion identity share one poll
// loop through singleflight.
type Waiter struct {
	cache ConversionCache
	group singleflight.Group

	timeout  time.Duration
	interval time.Duration
}

// NewWaiter creates a waiter over the given cache.
func NewWaiter(cache ConversionCache, cfg WaiterConfig) *Waiter {
	timeout := cfg.WaitTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Waiter{
		cache:    cache,
		timeout:  timeout,
		interval: interval,
	}
}

// Wait polls the cache for the conversion identity until an artifact appears
// or the wait budget runs out. A nil result with nil error means timeout.
// Cancelling ctx abandons this caller's wait without stopping the shared
// poll loop other callers may be riding on.
func (w *Waiter) Wait(ctx context.Context, hash string, img model.ImageFormat, vid model.VideoFormat) (*model.CacheResult, error) {
	key := fmt.Sprintf("%s-%s-%s", hash, img, vid)

	ch := w.group.DoChan(key, func() (any, error) {
		return w.poll(hash, img, vid)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Val == nil {
			return nil, nil
		}
		return res.Val.(*model.CacheResult), nil
	}
}

// poll runs the shared loop for one conversion identity. It checks once
// immediately so an already-finished conversion costs no wait at all.
func (w *Waiter) poll(hash string, img model.ImageFormat, vid model.VideoFormat) (*model.CacheResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	result, err := w.cache.Lookup(ctx, hash, img, vid, false, "")
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case <-ticker.C:
			result, err := w.cache.Lookup(ctx, hash, img, vid, false, "")
			if err != nil {
				return nil, err
			}
			if result != nil {
				return result, nil
			}
		}
	}
}
