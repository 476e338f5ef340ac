package queue

import (
	"math"
	"math/rand"
	"time"
)

const (
	backoffBase = 5 * time.Second
	backoffMax  = time.Hour
)

// Backoff returns the delay before the given retry attempt: exponential
// from the base with up to 20% jitter, capped at an hour.
func Backoff(retry int) time.Duration {
	d := time.Duration(float64(backoffBase) * math.Pow(2, float64(retry-1)))
	if d > backoffMax {
		d = backoffMax
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 5))
	return d + jitter
}
