// Package backoff computes the jittered exponential delay between
// retried provider calls and provides the generic Retry loop that
// internal/provider's clients wrap their model calls in.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy is the shape of an exponential-backoff schedule: a starting delay
// that grows by Factor each attempt, capped at MaxMs, with Jitter added to
// avoid synchronized retries across agents hitting the same provider.
type Policy struct {
	InitialMs float64
	MaxMs     float64
	Factor    float64
	Jitter    float64
}

// DefaultPolicy is what internal/provider's Anthropic and OpenAI clients
// retry model calls with: 100ms growing by 2x per attempt, capped at 30s,
// with 10% jitter.
func DefaultPolicy() Policy {
	return Policy{InitialMs: 100, MaxMs: 30000, Factor: 2, Jitter: 0.1}
}

// ComputeDelay returns how long to wait before the given attempt (1-indexed).
func ComputeDelay(policy Policy, attempt int) time.Duration {
	return computeDelay(policy, attempt, rand.Float64()) // #nosec G404 -- jitter only, not security-sensitive
}

// computeDelay is the deterministic core ComputeDelay wraps; tests in this
// package supply randomValue directly instead of stubbing math/rand.
func computeDelay(policy Policy, attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := policy.InitialMs * math.Pow(policy.Factor, exp)
	jittered := base + base*policy.Jitter*randomValue
	capped := math.Min(policy.MaxMs, jittered)
	return time.Duration(math.Round(capped)) * time.Millisecond
}
