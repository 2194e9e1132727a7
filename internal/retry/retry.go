// Package retry provides bounded retry with exponential backoff.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Do calls fn until it succeeds, up to attempts times. The delay before
// each retry starts at base and doubles per attempt, with up to 25%
// random jitter added so concurrent retriers spread out. A done context
// aborts the wait and returns the context error; the last fn error is
// returned when all attempts fail.
func Do(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		if werr := wait(ctx, backoff(base, i)); werr != nil {
			return werr
		}
	}
	return err
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := base << uint(attempt)
	return d + rand.N(d/4+1)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
