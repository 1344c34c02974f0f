package httpclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryStage returns the retry stage.
//
// Retry is exception-triggered only: an error response (4xx/5xx) is a
// response, not a failure, and is returned as-is. Any error from the inner
// chain is retried up to RetryCount additional attempts, except usage and
// configuration errors, which indicate bugs rather than transient faults.
//
// Exhausting the budget re-returns the last error unchanged, so callers
// observe the identical error kind they would with retries disabled.
func RetryStage(next Stage, c *Client) Stage {
	return StageFunc(func(ctx context.Context, req *Request) (*Response, error) {
		attempts := c.cfg.RetryCount + 1
		if attempts < 1 {
			attempts = 1
		}

		strategy := c.cfg.RetryBackOff
		if strategy == nil {
			strategy = immediateRetry{}
		}
		strategy.Reset()

		var lastErr error
		for attempt := 0; attempt < attempts; attempt++ {
			if attempt > 0 {
				delay := strategy.NextBackOff()
				if delay == backoff.Stop {
					break
				}
				if !sleepContext(ctx, delay) {
					break
				}
				c.metrics.recordRetry(ctx, req, attempt)
				c.logRetry(req, attempt, lastErr)
			}

			resp, err := next.Process(ctx, req)
			if err == nil {
				return resp, nil
			}
			lastErr = err

			if IsUsageError(err) || IsConfigurationError(err) {
				break
			}
		}
		return nil, lastErr
	})
}

// immediateRetry is the default inter-attempt strategy: no delay at all,
// preserving plain counted-retry semantics. Configure a real strategy with
// WithRetryBackOff when talking to services that need breathing room.
type immediateRetry struct{}

var _ backoff.BackOff = immediateRetry{}

func (immediateRetry) NextBackOff() time.Duration { return 0 }
func (immediateRetry) Reset()                     {}

// sleepContext waits for d or until ctx is done, reporting whether the full
// wait elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
