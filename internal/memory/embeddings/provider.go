// Package embeddings defines the interface a memory recall embedder
// implements, so internal/memory can swap providers without caring which
// one is wired.
package embeddings

import "context"

// Provider computes embedding vectors for text.
type Provider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}
