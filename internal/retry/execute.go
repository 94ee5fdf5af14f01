package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Execute calls op until it succeeds, fails with a kind the policy will not
// retry, or runs out of attempts. It returns the value, the number of attempts
// made and the final error. A nil policy means Default.
func Execute[T any](ctx context.Context, p *Policy, op func(context.Context) (T, error)) (T, int, error) {
	var zero T
	if p == nil {
		p = Default()
	}
	logger := p.Logger
	if logger == nil {
		logger = discard
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	maxAttempts := p.attempts()
	var last error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, attempt, err
		}

		value, err := op(ctx)
		if err == nil {
			return value, attempt + 1, nil
		}
		last = err
		if errors.Is(err, context.Canceled) {
			return zero, attempt + 1, err
		}

		kind := Classify(err)
		if !p.retryable(kind) {
			logger.Error("attempt failed, not retrying",
				"policy", p.Name, "attempt", attempt+1, "kind", kind.String(), "error", err)
			return zero, attempt + 1, err
		}
		if attempt == maxAttempts-1 {
			break
		}

		delay := p.Delay(kind, attempt, retryAfterOf(err))
		logger.Warn("attempt failed, retrying",
			"policy", p.Name, "attempt", attempt+1, "max_attempts", maxAttempts,
			"kind", kind.String(), "delay", delay, "error", err)
		if err := sleep(ctx, delay); err != nil {
			return zero, attempt + 1, fmt.Errorf("retry wait: %w", err)
		}
	}

	logger.Error("all attempts failed", "policy", p.Name, "attempts", maxAttempts, "error", last)
	return zero, maxAttempts, &ExhaustedError{Attempts: maxAttempts, Last: last}
}

// Do is Execute for operations without a result value.
func Do(ctx context.Context, p *Policy, op func(context.Context) error) (int, error) {
	_, attempts, err := Execute(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return attempts, err
}

func retryAfterOf(err error) time.Duration {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.RetryAfter
	}
	return 0
}
