package orchestrator

import (
	"context"
	"sync"
	"time"
)

// rateLimiter admits at most limit acquisitions per sliding window. A
// full window blocks the caller until the oldest timestamp falls off.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	times []time.Time

	now   func() time.Time // test override
	sleep func(context.Context, time.Duration) error
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (r *rateLimiter) Acquire(ctx context.Context) error {
	if r.limit <= 0 {
		return ctx.Err()
	}
	for {
		r.mu.Lock()
		now := r.now()
		cutoff := now.Add(-r.window)
		keep := r.times[:0]
		for _, t := range r.times {
			if t.After(cutoff) {
				keep = append(keep, t)
			}
		}
		r.times = keep
		if len(r.times) < r.limit {
			r.times = append(r.times, now)
			r.mu.Unlock()
			return nil
		}
		wait := r.times[0].Sub(cutoff)
		r.mu.Unlock()
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}
