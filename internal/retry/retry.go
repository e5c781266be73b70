// Package retry provides a bounded retry combinator with a fixed or
// escalating delay between attempts.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a retried operation.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Delay is the wait after a failed attempt. When Escalate is set the
	// wait grows linearly: Delay after attempt 1, 2*Delay after attempt 2.
	Delay    time.Duration
	Escalate bool
}

// Sleeper waits between attempts. Injectable so tests can use a fake clock.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper. It returns early if ctx is cancelled.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs op under the policy, sleeping between failed attempts. It returns
// nil on the first success, the context error if cancelled while waiting,
// and the last operation error wrapped with the attempt count after
// exhaustion.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	return DoWithSleeper(ctx, p, SleepContext, op)
}

// DoWithSleeper is Do with an explicit Sleeper, for tests.
func DoWithSleeper(ctx context.Context, p Policy, sleep Sleeper, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		wait := p.Delay
		if p.Escalate {
			wait = p.Delay * time.Duration(attempt)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}
