package usecase

import (
	"math"
	"time"
)

// Backoff returns the delay before the next replay after the given number of failed
// attempts: interval doubled per attempt, capped at ceiling. A non-positive ceiling disables the cap.
func Backoff(attempts int, interval, ceiling time.Duration) time.Duration {
	if attempts < 1 || interval <= 0 {
		return interval
	}

	delay := interval
	for i := 1; i < attempts; i++ {
		if ceiling > 0 && delay >= ceiling/2 {
			return ceiling
		}
		if delay > math.MaxInt64/2 {
			return delay
		}
		delay *= 2
	}
	if ceiling > 0 && delay > ceiling {
		return ceiling
	}
	return delay
}
