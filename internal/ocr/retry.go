package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/platescan/internal/logger"
)

// DefaultRetryDelay is the initial delay between recognition attempts.
const DefaultRetryDelay = time.Second

// withRetry runs fn up to maxRetries+1 times, doubling delay after each
// failure. It stops early when ctx is done.
func withRetry(ctx context.Context, maxRetries int, delay time.Duration, log *logger.Logger, fn func() error) error {
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := delay * time.Duration(1<<uint(attempt-1))
			log.Debugf("Retrying recognition (attempt %d/%d) after %v", attempt, maxRetries, wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debugf("Recognition attempt failed: %v", lastErr)
	}

	return fmt.Errorf("recognition failed after %d attempts: %w", maxRetries+1, lastErr)
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
