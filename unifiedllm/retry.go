package unifiedllm

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy describes how Client retries a failed completion. Only errors
// classified as retryable are attempted again.
type RetryPolicy struct {
	MaxRetries int // attempts after the first
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     bool
	OnRetry    func(err error, attempt int, delay time.Duration)
}

// NoRetryPolicy returns a policy that performs a single attempt. Raising
// MaxRetries on the result enables exponential backoff from one second.
func NoRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
		Jitter:    true,
	}
}

// Backoff builds the go-retry backoff sequence for the policy.
func (p RetryPolicy) Backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.NewExponential(base)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	if p.Jitter {
		b = retry.WithJitterPercent(50, b)
	}
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), b) // #nosec G115 -- clamped above
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or the
// policy is exhausted. Cancellation while waiting yields an AbortError.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
		attempt int
	)
	backoff := policy.Backoff()
	if policy.OnRetry != nil {
		next := backoff
		backoff = retry.BackoffFunc(func() (time.Duration, bool) {
			delay, stop := next.Next()
			if !stop {
				attempt++
				policy.OnRetry(lastErr, attempt, delay)
			}
			return delay, stop
		})
	}

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := fn(ctx)
		if err != nil {
			lastErr = err
			if IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = r
		return nil
	})
	if err == nil {
		return result, nil
	}
	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil && err == ctxErr {
		return zero, &AbortError{SDKError: SDKError{Message: "request cancelled during retry", Cause: ctxErr}}
	}
	return zero, err
}
