package worker

import (
	"math"
	"math/rand"
	"time"
)

const (
	jitterMin = 5
	jitterMax = 10
)

// RetryPolicy decides whether and when a transient fetch failure is retried.
// Delays grow as 2^attempt plus a uniform jitter in [5,10) units; the unit is
// a second in production and can be shrunk in tests.
type RetryPolicy struct {
	MaxAttempts int
	Unit        time.Duration
}

func NewRetryPolicy(maxAttempts int, unit time.Duration) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if unit <= 0 {
		unit = time.Second
	}
	return &RetryPolicy{MaxAttempts: maxAttempts, Unit: unit}
}

// NextDelay returns the wait before the next attempt, for attempt starting
// at 0.
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	backoff := math.Pow(2, float64(attempt))
	jitter := jitterMin + rand.Float64()*(jitterMax-jitterMin)
	return time.Duration((backoff + jitter) * float64(p.Unit))
}

// ShouldRetry reports whether another attempt remains after the given
// attempt number.
func (p *RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts-1
}
