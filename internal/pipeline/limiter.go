// Package pipeline orchestrates the concurrent fetch-and-score run: rate
// limiting, per-fetch retry, source protection, and outcome collection.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limiter bounds the number of outstanding fetches and enforces a minimum
// delay between successive fetch starts. The two constraints are
// independent: even with free concurrency slots, issuance is paced.
type Limiter struct {
	sem  *semaphore.Weighted
	pace *rate.Limiter
}

// NewLimiter creates a limiter admitting at most maxConcurrent outstanding
// fetches, with at least minDelay between fetch starts. A minDelay of 0
// disables pacing.
func NewLimiter(maxConcurrent int, minDelay time.Duration) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	pace := rate.NewLimiter(rate.Inf, 1)
	if minDelay > 0 {
		pace = rate.NewLimiter(rate.Every(minDelay), 1)
	}
	return &Limiter{
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
		pace: pace,
	}
}

// Acquire blocks until both a concurrency slot and the pacing gate allow a
// fetch to start. On context cancellation the slot is not held.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := l.pace.Wait(ctx); err != nil {
		l.sem.Release(1)
		return err
	}
	return nil
}

// Release frees the concurrency slot taken by Acquire. Call it as soon as
// the fetch completes; scoring must not hold a slot.
func (l *Limiter) Release() {
	l.sem.Release(1)
}
