package search

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/quillnotes/quill/internal/embedding"
	"github.com/quillnotes/quill/internal/log"
	"github.com/quillnotes/quill/internal/resource"
	"github.com/quillnotes/quill/internal/testutil"
)

// hashEmbedder maps each word to one dimension, giving deterministic vectors
// whose cosine similarity reflects word overlap.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := embedding.ZeroVector()
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[h.Sum32()%embedding.Dimension] = 1
	}
	return v, nil
}

func (e hashEmbedder) EmbedChunks(_ context.Context, text string) ([]embedding.Chunk, error) {
	var chunks []embedding.Chunk
	for _, c := range embedding.Chunks(text) {
		v, _ := e.Embed(context.Background(), c)
		chunks = append(chunks, embedding.Chunk{Content: c, Vector: v})
	}
	return chunks, nil
}

func TestFindRelevant_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	embedder := hashEmbedder{}
	store := resource.New(resource.NewQueries(tc.Pool), embedder, log.NewNop())
	retriever := New(NewQueries(tc.Pool), embedder, log.NewNop())

	if _, err := store.CreateFromText(ctx, "gophers dig elaborate tunnels"); err != nil {
		t.Fatalf("CreateFromText: %v", err)
	}
	if _, err := store.CreateFromText(ctx, "sourdough needs a mature starter"); err != nil {
		t.Fatalf("CreateFromText: %v", err)
	}

	results, err := retriever.FindRelevant(ctx, "gophers dig elaborate tunnels")
	if err != nil {
		t.Fatalf("FindRelevant: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want exactly the tunnel fact above threshold", len(results))
	}
	if results[0].Content != "gophers dig elaborate tunnels" {
		t.Errorf("content = %q", results[0].Content)
	}
	if results[0].Similarity <= SimilarityThreshold {
		t.Errorf("similarity = %f, want above %f", results[0].Similarity, SimilarityThreshold)
	}

	// A query sharing no words with stored content finds nothing.
	results, err = retriever.FindRelevant(ctx, "quantum chromodynamics")
	if err != nil {
		t.Fatalf("FindRelevant: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("unrelated query returned %d results, want 0", len(results))
	}
}
