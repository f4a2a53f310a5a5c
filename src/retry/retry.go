// Package retry runs an operation with capped exponential backoff. It is
// only used for offsite uploads; local backup steps never retry.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Options configures exponential backoff for retries.
type Options struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// Default backoff settings used when opts are zero/invalid.
var Default = Options{
	MaxAttempts:  5,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     15 * time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

// IsRetryableFunc decides whether err deserves another attempt.
type IsRetryableFunc func(error) bool

// Do executes fn until it succeeds, ctx is done, isRetryable rejects the
// error, or attempts are exhausted. It returns the number of attempts made
// and the last error.
func Do(ctx context.Context, opts Options, isRetryable IsRetryableFunc, fn func(context.Context) error) (int, error) {
	if opts.MaxAttempts <= 0 {
		opts = Default
	}
	if opts.Multiplier < 1 {
		opts.Multiplier = 1
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	backoff := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if isRetryable != nil && !isRetryable(err) {
			return attempt, err
		}
		if attempt >= opts.MaxAttempts {
			return attempt, err
		}

		sleep := backoff
		if opts.Jitter && backoff > 0 {
			// +/-20% jitter.
			delta := float64(backoff) * 0.2
			sleep = time.Duration(float64(backoff) + (rng.Float64()*2-1)*delta)
		}
		if opts.MaxDelay > 0 && sleep > opts.MaxDelay {
			sleep = opts.MaxDelay
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}

		next := time.Duration(float64(backoff) * opts.Multiplier)
		if next < backoff {
			next = backoff
		}
		backoff = next
		if opts.MaxDelay > 0 && backoff > opts.MaxDelay {
			backoff = opts.MaxDelay
		}
	}
}
