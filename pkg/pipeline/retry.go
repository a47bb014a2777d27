package pipeline

import (
	"context"
	"time"

	"github.com/luminahq/lumina/pkg/errors"
	"github.com/luminahq/lumina/pkg/logging"
)

// RetryPolicy retries an operation with exponential backoff. The delay
// before attempt n+1 is Base << n, so with a 1s base the schedule is
// 2s, 4s, 8s, ...
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy builds a policy with the standard 1-second base.
func NewRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Base:        time.Second,
		sleep:       sleepCtx,
	}
}

// Do runs fn up to MaxAttempts times. Only retryable error codes trigger
// another attempt; anything else returns immediately. onRetry, if non-nil,
// is called before each re-attempt.
func (p RetryPolicy) Do(ctx context.Context, logger logging.Logger, op string, onRetry func(), fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		code := errors.CodeOf(errors.ClassifyError(lastErr, op))
		if !errors.IsRetryable(code) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Base << attempt
		logger.Warn("operation failed, retrying",
			logging.F("op", op),
			logging.F("attempt", attempt),
			logging.F("delay", delay.String()),
			logging.Err(lastErr))
		if onRetry != nil {
			onRetry()
		}
		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
