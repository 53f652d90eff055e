package core

import (
	"context"
	"time"

	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
)

// backoffUntilDone waits before each attempt after the first like strategy.Backoff,
// and stops retrying as soon as ctx is done.
func backoffUntilDone(ctx context.Context, algorithm backoff.Algorithm) strategy.Strategy {
	return func(attempt uint) bool {
		if attempt == 0 {
			return ctx.Err() == nil
		}

		timer := time.NewTimer(algorithm(attempt))
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		}
	}
}
