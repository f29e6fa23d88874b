// Package embedding provides text embedding via a local ONNX model, with
// caching and a deterministic mock for tests.
package embedding

import "context"

// Embedder produces fixed-length vector embeddings for text. The matching
// core treats it as a black box: text in, vector out.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
