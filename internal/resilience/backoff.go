package resilience

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NewRetrySchedule returns a deterministic exponential backoff schedule:
// base, 2*base, 4*base, and so on, with no jitter and no elapsed-time cap.
// Callers that honor server-supplied hints (Retry-After) add those on top
// of the scheduled delay.
func NewRetrySchedule(base time.Duration) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = 5 * time.Minute
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}
