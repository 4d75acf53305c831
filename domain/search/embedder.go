package search

import "context"

// Embedder converts text into embedding vectors of a fixed dimension.
// Implementations normalize input (lowercase, trim) before encoding and are
// safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dim returns the embedding dimension.
	Dim() int
}
