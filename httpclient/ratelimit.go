package httpclient

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitStage returns a stage that throttles outgoing requests with a
// token-bucket limiter shared by every request of the client. Place it
// inside Retry so retried attempts are throttled like first attempts.
//
//	client := httpclient.New(
//	    httpclient.WithStages(
//	        httpclient.RetryStage,
//	        httpclient.RateLimitStage(rate.NewLimiter(rate.Limit(50), 10)),
//	        httpclient.RedirectStage,
//	        httpclient.DecodeStage,
//	    ),
//	)
func RateLimitStage(limiter *rate.Limiter) StageConstructor {
	return func(next Stage, c *Client) Stage {
		return StageFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, NewTimeoutError("rate limit wait", err)
			}
			return next.Process(ctx, req)
		})
	}
}
