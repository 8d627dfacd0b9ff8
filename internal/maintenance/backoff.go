package maintenance

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff doubles base per attempt, caps at max and adds up to
// 250ms of jitter.
// attempt=0 => base
// attempt=1 => 2*base
func ExponentialBackoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > max || delay <= 0 {
		delay = max
	}

	delay += time.Duration(rand.Intn(250)) * time.Millisecond
	return delay
}

// Retry calls fn until it succeeds, attempts run out or ctx ends. The last
// error is returned.
func Retry(ctx context.Context, attempts int, base, max time.Duration, fn func(ctx context.Context) error) error {
	var err error

	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		if attempt == attempts-1 {
			break
		}

		t := time.NewTimer(ExponentialBackoff(attempt, base, max))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	return err
}
