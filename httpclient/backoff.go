package httpclient

import (
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var _ backoff.BackOff = (*LinearBackOff)(nil)

// NewExponentialBackOff builds a cenkalti/backoff exponential strategy for
// the retry stage. A zero jitter still gets a small randomization factor:
// fully synchronized retries across clients are never what you want.
func NewExponentialBackOff(initial, max time.Duration, multiplier, jitter float64) *backoff.ExponentialBackOff {
	if jitter <= 0 {
		jitter = 0.1
	}
	return &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: jitter,
		Multiplier:          multiplier,
		MaxInterval:         max,
	}
}

// LinearBackOff grows the interval by a fixed increment per attempt, with
// jitter. Gentler than exponential growth for short retry budgets.
type LinearBackOff struct {
	// InitialInterval is the first backoff interval.
	InitialInterval time.Duration

	// Increment is added to the base interval after each attempt.
	Increment time.Duration

	// MaxInterval caps the base interval.
	MaxInterval time.Duration

	// JitterFactor randomizes each interval by ±factor (0.0–1.0).
	JitterFactor float64

	attempt int
}

// NewLinearBackOff returns a LinearBackOff with 250ms initial interval,
// 250ms increment, a 10s cap and 50% jitter.
func NewLinearBackOff() *LinearBackOff {
	return &LinearBackOff{
		InitialInterval: 250 * time.Millisecond,
		Increment:       250 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		JitterFactor:    0.5,
	}
}

// Reset restarts the progression.
func (b *LinearBackOff) Reset() { b.attempt = 0 }

// NextBackOff returns the next interval with jitter applied.
func (b *LinearBackOff) NextBackOff() time.Duration {
	base := b.InitialInterval + time.Duration(b.attempt)*b.Increment
	if b.MaxInterval > 0 && base > b.MaxInterval {
		base = b.MaxInterval
	}
	b.attempt++
	return applyJitter(base, b.JitterFactor)
}

// applyJitter randomizes d by ±factor.
func applyJitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 || d <= 0 {
		return d
	}
	delta := factor * float64(d)
	low := float64(d) - delta
	return time.Duration(low + rand.Float64()*2*delta)
}
