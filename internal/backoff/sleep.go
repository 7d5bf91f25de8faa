package backoff

import (
	"context"
	"time"
)

// sleep waits out duration, returning early with ctx.Err() if ctx is
// cancelled first.
func sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
