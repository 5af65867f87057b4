// Package embedding provides text embedding via ONNX, OpenAI-compatible APIs, or
// feature hashing, plus caching.
package embedding

import "context"

// Embedder produces unit-length vector embeddings for text.
// EmbedBatch returns one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector dimension, or 0 if it is not known until the first call.
	Dimensions() int
	Close() error
}
