package backoff

import (
	"context"
	"errors"
)

// ErrAttemptsExhausted is returned once every retry has failed.
var ErrAttemptsExhausted = errors.New("backoff: retry attempts exhausted")

// Retry calls fn up to maxAttempts times (1-indexed attempt number passed
// in), sleeping per policy between failures. It returns the first success,
// ctx.Err() if cancelled between attempts, or the last error wrapped in
// ErrAttemptsExhausted once attempts run out. Used by internal/provider's
// Anthropic and OpenAI clients to retry failed completion calls; every
// error is retried, with no transient/permanent distinction.
func Retry[T any](ctx context.Context, policy Policy, maxAttempts int, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		value, callErr := fn(attempt)
		if callErr == nil {
			return value, nil
		}
		err = callErr

		if attempt < maxAttempts {
			if sleepErr := sleep(ctx, ComputeDelay(policy, attempt)); sleepErr != nil {
				return zero, sleepErr
			}
		}
	}
	return zero, errors.Join(ErrAttemptsExhausted, err)
}
