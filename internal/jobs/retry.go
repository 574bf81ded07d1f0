// Package jobs wraps the runner and moderation services in retry-safe
// background job handlers, and provides the selection/enqueue operations
// schedulers use to feed the queue.
package jobs

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// Class is the retry classification of an error.
type Class int

const (
	// ClassTransient errors are retried with backoff.
	ClassTransient Class = iota
	// ClassDiscard errors end the attempt loop immediately; the underlying
	// condition (typically a vanished record) will not heal with time.
	ClassDiscard
)

// RetryPolicy retries an operation on transient failures with exponential
// backoff and jitter. It replaces job-framework retry annotations with an
// explicit, testable object.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseBackoff is the delay before the second attempt; it doubles per
	// attempt up to MaxBackoff.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// MaxJitter is the random extra delay added to each backoff.
	MaxJitter time.Duration
	// Classify decides whether an error is worth retrying. Nil treats every
	// error as transient.
	Classify func(error) Class
}

// DefaultRetryPolicy retries transient failures up to 3 attempts total.
func DefaultRetryPolicy(classify func(error) Class) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  30 * time.Second,
		MaxJitter:   250 * time.Millisecond,
		Classify:    classify,
	}
}

// Do runs fn until it succeeds, a non-transient error occurs, the context is
// cancelled, or attempts are exhausted. The returned error is the last error
// from fn, wrapped with attempt context on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if p.Classify != nil && p.Classify(lastErr) == ClassDiscard {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		backoff := min(p.BaseBackoff<<(attempt-1), p.MaxBackoff)
		backoff += randomJitter(p.MaxJitter)

		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt).
			With("max_attempts", p.MaxAttempts).
			With("backoff", backoff).
			With("error", lastErr.Error()).
			Warn("operation failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, p.MaxAttempts, lastErr)
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
