package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry policy defaults
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
	DefaultMaxDelay    = 60 * time.Second
)

// RetryPolicy wraps a Transferer with bounded exponential-backoff retries.
// Every attempt re-downloads the whole file; partial bytes from a failed
// attempt are already discarded by the Transferer.
type RetryPolicy struct {
	// MaxAttempts is the total number of transfer attempts (not just retries)
	MaxAttempts int

	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration

	// MaxDelay caps the exponentially growing delay
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the default retry policy (3 attempts, 5s base
// delay doubling up to 60s)
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// RetryNotify is invoked before each backoff sleep with the 1-based attempt
// that just failed, its error, and the upcoming delay
type RetryNotify func(attempt int, err error, delay time.Duration)

// Run drives task through tr until it succeeds, is cancelled, or exhausts
// the attempt budget. The backoff sleep races against ctx so pause/cancel
// stay responsive between attempts, not just during active transfer.
func (p RetryPolicy) Run(ctx context.Context, task *Task, tr Transferer, progress Progress, notify RetryNotify) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = p.MaxDelay
	bo.MaxElapsedTime = 0

	operation := func() error {
		task.Attempts++
		err := tr.Transfer(ctx, task, progress)
		if err == nil {
			return nil
		}
		task.LastError = err.Error()
		if IsCancelled(err) || ctx.Err() != nil {
			// Cancellation always short-circuits the retry loop
			return backoff.Permanent(err)
		}
		if task.Attempts >= p.MaxAttempts {
			return backoff.Permanent(err)
		}
		return err
	}

	onRetry := func(err error, delay time.Duration) {
		task.Status = StatusRetrying
		task.LastError = fmt.Sprintf("attempt %d/%d failed: %v; retrying in %s",
			task.Attempts, p.MaxAttempts, err, delay.Round(time.Millisecond))
		if notify != nil {
			notify(task.Attempts, err, delay)
		}
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), onRetry)
	if err == nil {
		return nil
	}

	// A context cancellation that fires during the backoff sleep surfaces
	// as the bare context error rather than a TransferError.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewTransferErrorWithCause(ErrorCancelled, "cancelled while waiting to retry", err)
	}
	if IsCancelled(err) {
		return err
	}

	task.Status = StatusFailed
	task.LastError = err.Error()
	return err
}
