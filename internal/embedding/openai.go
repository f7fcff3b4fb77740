package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI generates embeddings through the OpenAI API.
//
// A nil client (no API key configured) puts the generator in fallback mode:
// every input maps to a zero vector with a logged warning. Credential errors
// from the API degrade the same way; other errors propagate to the caller.
type OpenAI struct {
	client *openai.Client // nil = fallback mode
	model  string
	logger *slog.Logger
}

// NewOpenAI creates a generator. apiKey may be empty, in which case the
// generator runs in zero-vector fallback mode.
func NewOpenAI(apiKey, model string, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbeddingAda002)
	}

	g := &OpenAI{model: model, logger: logger}
	if apiKey != "" {
		client := openai.NewClient(option.WithAPIKey(apiKey))
		g.client = &client
	}
	return g
}

// Embed returns a single vector for the whole text. Newlines are flattened to
// spaces before embedding. Without a configured credential the result is a
// zero vector of the configured dimension, regardless of input length.
func (g *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	input := strings.ReplaceAll(text, "\n", " ")

	if g.client == nil {
		g.logger.Warn("using fallback embedding (zero vector): no API key configured")
		return ZeroVector(), nil
	}

	vectors, err := g.embed(ctx, []string{input})
	if err != nil {
		if isCredentialError(err) {
			g.logger.Warn("using fallback embedding (zero vector): credential rejected", "error", err)
			return ZeroVector(), nil
		}
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("no embeddings returned")
	}
	return vectors[0], nil
}

// EmbedChunks splits text on sentence boundaries and returns one vector per
// chunk. In fallback mode every chunk maps to a zero vector.
func (g *OpenAI) EmbedChunks(ctx context.Context, text string) ([]Chunk, error) {
	chunks := Chunks(text)
	if len(chunks) == 0 {
		return nil, nil
	}

	if g.client == nil {
		g.logger.Warn("using fallback embeddings (zero vectors): no API key configured",
			"chunks", len(chunks))
		out := make([]Chunk, len(chunks))
		for i, c := range chunks {
			out[i] = Chunk{Content: c, Vector: ZeroVector()}
		}
		return out, nil
	}

	vectors, err := g.embed(ctx, chunks)
	if err != nil {
		if isCredentialError(err) {
			g.logger.Warn("using fallback embeddings (zero vectors): credential rejected", "error", err)
			out := make([]Chunk, len(chunks))
			for i, c := range chunks {
				out[i] = Chunk{Content: c, Vector: ZeroVector()}
			}
			return out, nil
		}
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	out := make([]Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = Chunk{Content: c, Vector: vectors[i]}
	}
	return out, nil
}

// embed calls the embeddings API with exponential backoff on rate limit
// errors. Other API errors are permanent and fail immediately.
func (g *OpenAI) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := g.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(g.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err // retry with backoff
			}
			return backoff.Permanent(err)
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	return vectors, nil
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// isCredentialError reports whether the API rejected the credential
// (HTTP 401/403). These degrade to the zero-vector fallback.
func isCredentialError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// toFloat32 converts the API's float64 vectors to float32 for pgvector storage.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
