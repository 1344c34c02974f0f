package httpclient

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the optional circuit-breaker stage.
type BreakerConfig struct {
	// Name labels the breaker in state-change callbacks.
	Name string

	// MaxRequests allowed through while half-open. Zero means one.
	MaxRequests uint32

	// Interval is the closed-state period after which counts reset.
	Interval time.Duration

	// Timeout is the open-state period before probing resumes.
	// Zero defaults to 30s.
	Timeout time.Duration

	// ConsecutiveFailures trips the breaker. Zero defaults to 5.
	ConsecutiveFailures uint32

	// OnStateChange is invoked on every state transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// BreakerStage returns a stage that short-circuits requests while the
// destination is failing. Only errors count as failures; error-status
// responses do not trip the breaker, mirroring the retry stage's
// exception-only policy.
//
// A rejected request surfaces as a connection error wrapping
// gobreaker.ErrOpenState, keeping it retryable once the breaker closes.
func BreakerStage(cfg BreakerConfig) StageConstructor {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
	}

	return func(next Stage, c *Client) Stage {
		cb := gobreaker.NewCircuitBreaker[*Response](settings)
		return StageFunc(func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := cb.Execute(func() (*Response, error) {
				return next.Process(ctx, req)
			})
			if err != nil {
				if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
					return nil, NewConnectionError("circuit breaker open for "+req.Destination(), err)
				}
				return nil, err
			}
			return resp, nil
		})
	}
}
