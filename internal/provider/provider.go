// Package provider abstracts the language-model backend the brain issues
// its single model call against per iteration (spec.md §4.2 step 2).
package provider

import "context"

// Message is one turn of conversation handed to the model. Role is
// "user", "assistant", or "tool".
type Message struct {
	Role    string
	Content string
}

// Request is everything the brain assembles for one model call (spec.md
// §4.2 step 1): persona, recalled context folded into System, and the
// session window as Messages.
type Request struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
}

// Provider issues a single, non-streaming completion call. The brain parses
// tool invocations out of the returned text itself (spec.md §4.2 step 3);
// providers do not see or negotiate tool schemas.
type Provider interface {
	Name() string
	DefaultModel() string
	Complete(ctx context.Context, req Request) (string, error)
}
