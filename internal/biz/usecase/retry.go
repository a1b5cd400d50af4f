package usecase

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy controls Retry. Delays double after each failed attempt.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy retries three times waiting 1s then 2s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  3,
		BaseDelay: 1 * time.Second,
	}
}

// Retry calls fn until it succeeds, the attempts run out or ctx is done.
// The last error is returned.
func Retry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, name string, fn func(ctx context.Context) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := policy.BaseDelay

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		if logger != nil {
			logger.Warn(name+" failed, retrying", "attempt", attempt+1, "delay", delay.String(), "error", err)
		}
		if !sleepCtx(ctx, delay) {
			return err
		}
		delay *= 2
	}
	if logger != nil {
		logger.Error(name+" failed", "attempts", attempts, "error", err)
	}
	return err
}

// sleepCtx waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
