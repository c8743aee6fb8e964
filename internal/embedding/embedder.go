package embedding

import (
	"context"
	"errors"
)

// ErrEmbeddingFailed marks embedding computation errors. A rebuild that
// hits one aborts as a whole, leaving the previous index generation in
// place.
var ErrEmbeddingFailed = errors.New("embedding computation failed")

// Embedder converts text into a fixed-dimension vector. Implementations
// are injected so the index can be tested with a deterministic stub.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}
