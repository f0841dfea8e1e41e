package llm

import (
	"context"
	"errors"
	"time"
)

// RetryConfig bounds a collaborator call: a per-attempt timeout plus a small
// fixed number of attempts with exponential backoff. A timed-out attempt is
// treated identically to a failed one.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Timeout   time.Duration // per attempt; zero disables the deadline
}

// DefaultRetry mirrors the original engine's policy: three attempts with
// exponential wait.
var DefaultRetry = RetryConfig{
	Attempts:  3,
	BaseDelay: time.Second,
	MaxDelay:  10 * time.Second,
	Timeout:   60 * time.Second,
}

// Retry runs fn with the configured timeout and backoff. Contract errors
// and context cancellation are surfaced immediately; only call failures are
// retried.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := cfg.BaseDelay
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}
		err := fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		// A malformed response will not get better on retry.
		var contractErr *ContractError
		if errors.As(err, &contractErr) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}

		if i < attempts-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}
	return lastErr
}
