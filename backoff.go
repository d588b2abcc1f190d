package tynamo

import (
	"math/rand/v2"
	"time"
)

const defaultBatchRetries = 5

// BackoffFunc maps a zero-based retry attempt to a wait duration.
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff returns a full-jitter backoff: a random duration up to
// base*factor^attempt, capped at limit. Full jitter keeps concurrent groups
// that were throttled together from retrying together.
func ExponentialBackoff(base time.Duration, factor float64, limit time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := float64(base)
		for i := 0; i < attempt && d < float64(limit); i++ {
			d *= factor
		}
		if d > float64(limit) {
			d = float64(limit)
		}
		return time.Duration(rand.Int64N(int64(d) + 1))
	}
}

// DefaultBackoff paces batch retries unless WithBatchBackoff overrides it.
var DefaultBackoff = ExponentialBackoff(50*time.Millisecond, 2, 5*time.Second)
