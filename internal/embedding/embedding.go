// Package embedding turns free text into fixed-length vectors for similarity
// search.
//
// The generator is backed by the OpenAI embeddings API. When no credential is
// configured (or the API rejects the credential) every chunk maps to a zero
// vector of the configured dimensionality: the pipeline stays functional
// without the external dependency, at the cost of similarity search becoming
// meaningless.
package embedding

import (
	"context"
	"strings"
)

// Dimension is the vector dimensionality of the embedding model
// (text-embedding-ada-002). The pgvector schema and the zero-vector fallback
// both depend on it; similarity queries are only well-formed when every
// stored vector matches.
const Dimension = 1536

// Chunk pairs a text fragment with its embedding vector.
type Chunk struct {
	Content string
	Vector  []float32
}

// Generator is the consumer-side interface for embedding generation.
// Stores depend on this rather than on the OpenAI client directly.
type Generator interface {
	// Embed returns a single vector for the whole text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedChunks splits text into chunks and returns one vector per chunk.
	EmbedChunks(ctx context.Context, text string) ([]Chunk, error)
}

// Chunks splits text on sentence boundaries: a naive split on period
// characters, trimming whitespace and discarding empty fragments.
func Chunks(text string) []string {
	parts := strings.Split(strings.TrimSpace(text), ".")
	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks
}

// ZeroVector returns a zero-filled vector of the configured dimension.
func ZeroVector() []float32 {
	return make([]float32, Dimension)
}
