package storage

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Backoff computes exponential retry delays with jitter.
type Backoff struct {
	Initial    time.Duration // first delay (default: 500ms)
	Max        time.Duration // delay cap (default: 15s)
	Multiplier float64       // growth per attempt (default: 2.0)
	Jitter     float64       // 0-1 fraction of the delay to randomize

	attempt int
}

// NewBackoff creates a Backoff suited to waiting for a database to start.
func NewBackoff() *Backoff {
	return &Backoff{
		Initial:    500 * time.Millisecond,
		Max:        15 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// Next returns the next delay and advances the attempt counter.
func (b *Backoff) Next() time.Duration {
	delay := float64(b.Initial) * math.Pow(b.Multiplier, float64(b.attempt))
	if delay > float64(b.Max) {
		delay = float64(b.Max)
	}
	if b.Jitter > 0 {
		delay += (rand.Float64()*2 - 1) * delay * b.Jitter
	}
	if delay < 0 {
		delay = float64(b.Initial)
	}
	b.attempt++
	return time.Duration(delay)
}

// Attempt returns the number of delays handed out so far.
func (b *Backoff) Attempt() int {
	return b.attempt
}

// RetryFunc is told about every failed attempt before the wait.
type RetryFunc func(attempt int, wait time.Duration, err error)

// ConnectDataset opens the dataset, retrying up to attempts times while the
// server is unreachable. Configuration errors are not retried.
func ConnectDataset(ctx context.Context, cfg DatasetConfig, attempts int, b *Backoff, onRetry RetryFunc) (*Dataset, error) {
	if attempts < 1 {
		attempts = 1
	}
	if b == nil {
		b = NewBackoff()
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		ds, err := OpenDataset(ctx, cfg)
		if err == nil {
			return ds, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
		if i == attempts {
			break
		}

		wait := b.Next()
		if onRetry != nil {
			onRetry(i, wait, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("dataset unreachable after %d attempts: %w", attempts, lastErr)
}
