package resource

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/quillnotes/quill/internal/embedding"
	"github.com/quillnotes/quill/internal/log"
	"github.com/quillnotes/quill/internal/note"
	"github.com/quillnotes/quill/internal/testutil"
)

// hashEmbedder produces deterministic unit vectors without calling OpenAI:
// each word maps to a single dimension. Texts sharing words get overlapping
// vectors, so cosine similarity behaves sensibly for round-trip tests.
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

func simpleNote(text string) note.Node {
	return note.Node{
		Type: "doc",
		Content: []note.Node{
			{Type: "paragraph", Content: []note.Node{{Type: "text", Text: text}}},
		},
	}
}

func TestStore_RoundTrip_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := New(NewQueries(tc.Pool), hashEmbedder{}, log.NewNop())

	id, err := store.Save(ctx, SaveInput{
		Tree:      simpleNote("the gopher digs tunnels"),
		Title:     "Gopher Facts",
		WordCount: 4,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Meta.Title != "Gopher Facts" {
		t.Errorf("title = %q", got.Meta.Title)
	}
	if got.Meta.WordCount != 4 {
		t.Errorf("word count = %d", got.Meta.WordCount)
	}
	if got.Content != "the gopher digs tunnels " {
		t.Errorf("content = %q, want the extracted plain text", got.Content)
	}

	// Save again under the same ID: update in place, not a second row.
	if _, err := store.Save(ctx, SaveInput{
		Tree:       simpleNote("the gopher digs deeper tunnels"),
		Title:      "Gopher Facts",
		WordCount:  5,
		ResourceID: id,
	}); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	summaries, err := store.List(ctx, 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("List returned %d rows, want 1", len(summaries))
	}
	if summaries[0].WordCount != 5 {
		t.Errorf("listed word count = %d, want updated value 5", summaries[0].WordCount)
	}

	changed, err := store.UpdateTitle(ctx, id, "Tunnel Engineering")
	if err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}
	if !changed {
		t.Error("UpdateTitle should report a change")
	}

	got, err = store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after title update: %v", err)
	}
	if got.Meta.Title != "Tunnel Engineering" {
		t.Errorf("title after update = %q", got.Meta.Title)
	}
	if got.Meta.WordCount != 5 {
		t.Errorf("word count after title update = %d, body fields must survive", got.Meta.WordCount)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, id); err == nil {
		t.Error("Get after Delete should fail")
	}

	// Embeddings cascade with the resource; no orphans left behind.
	var count int
	if err := tc.Pool.QueryRow(ctx, "SELECT count(*) FROM embeddings").Scan(&count); err != nil {
		t.Fatalf("counting embeddings: %v", err)
	}
	if count != 0 {
		t.Errorf("embeddings left after delete = %d, want 0", count)
	}
}

func TestStore_CreateFromText_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := New(NewQueries(tc.Pool), hashEmbedder{}, log.NewNop())

	id, err := store.CreateFromText(ctx, "Gophers dig tunnels. Tunnels stay cool in summer.")
	if err != nil {
		t.Fatalf("CreateFromText: %v", err)
	}

	var count int
	err = tc.Pool.QueryRow(ctx,
		"SELECT count(*) FROM embeddings WHERE resource_id = $1", id).Scan(&count)
	if err != nil {
		t.Fatalf("counting embeddings: %v", err)
	}
	if count != 2 {
		t.Errorf("embedding rows = %d, want one per sentence chunk", count)
	}
}
