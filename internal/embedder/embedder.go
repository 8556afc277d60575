// Package embedder provides the Embedder Client: a thin HTTP client over an
// OpenAI-compatible embeddings endpoint with retry-with-backoff, plus a
// deterministic hash-based embedder for tests and offline development.
package embedder

import (
	"context"
)

// Client turns text fragments into fixed-dimension embeddings.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
