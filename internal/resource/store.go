package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/quillnotes/quill/internal/embedding"
	"github.com/quillnotes/quill/internal/note"
)

// Querier defines the database operations Store depends on.
// Interfaces are defined by the consumer; *Queries satisfies this.
type Querier interface {
	UpsertResource(ctx context.Context, id, content string) error
	GetResource(ctx context.Context, id string) (ResourceRow, error)
	ListResources(ctx context.Context, limit, offset int32) ([]ResourceRow, error)
	DeleteResource(ctx context.Context, id string) (int64, error)
	InsertEmbedding(ctx context.Context, arg InsertEmbeddingParams) error
	UpdateEmbeddingByResource(ctx context.Context, content string, vector pgvector.Vector, resourceID string) (int64, error)
}

// Store manages note persistence and keeps embeddings in step with content.
//
// Save deliberately runs the resource write and the embedding write as two
// statements without a wrapping transaction: a crash between the two leaves
// a stale embedding, which is an accepted inconsistency window for search
// results, not a correctness issue. Store is safe for concurrent use.
type Store struct {
	queries  Querier
	embedder embedding.Generator
	logger   *slog.Logger
}

// New creates a Store.
func New(queries Querier, embedder embedding.Generator, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  queries,
		embedder: embedder,
		logger:   logger,
	}
}

// Save persists an editor payload. With a ResourceID it updates that resource
// in place (overwriting the prior content blob wholesale); without one it
// allocates a new identifier. Either way the primary embedding row is brought
// up to date and images with descriptive text are stored as satellite
// resource+embedding pairs. Returns the resource ID.
//
// Database errors propagate to the caller; nothing is retried.
func (s *Store) Save(ctx context.Context, in SaveInput) (string, error) {
	textContent := note.ExtractText(in.Tree)
	images := note.ExtractImages(in.Tree)

	title := in.Title
	if title == "" {
		title = "Untitled Note"
	}

	meta := note.Meta{
		Title:           title,
		WordCount:       in.WordCount,
		HTMLContent:     in.HTML,
		MarkdownContent: in.Markdown,
		JSONContent:     in.Tree,
		Images:          images,
	}
	blob, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encoding content blob: %w", err)
	}

	vector, err := s.embedder.Embed(ctx, textContent)
	if err != nil {
		return "", fmt.Errorf("embedding note content: %w", err)
	}

	resourceID := in.ResourceID
	if resourceID == "" {
		resourceID = uuid.NewString()
	}

	if err := s.queries.UpsertResource(ctx, resourceID, string(blob)); err != nil {
		return "", fmt.Errorf("saving resource %q: %w", resourceID, err)
	}

	if err := s.upsertPrimaryEmbedding(ctx, resourceID, textContent, vector); err != nil {
		return "", err
	}

	// Satellite resources make image content independently searchable.
	// Existing image satellites are not updated in place; each save appends.
	for _, img := range images {
		if img.Alt == "" {
			continue
		}
		if err := s.saveImageSatellite(ctx, img); err != nil {
			return "", err
		}
	}

	s.logger.Debug("saved note",
		"id", resourceID,
		"text_length", len(textContent),
		"images", len(images),
	)
	return resourceID, nil
}

func (s *Store) upsertPrimaryEmbedding(ctx context.Context, resourceID, content string, vector []float32) error {
	v := pgvector.NewVector(vector)

	affected, err := s.queries.UpdateEmbeddingByResource(ctx, content, v, resourceID)
	if err != nil {
		return fmt.Errorf("updating embedding for resource %q: %w", resourceID, err)
	}
	if affected > 0 {
		return nil
	}

	err = s.queries.InsertEmbedding(ctx, InsertEmbeddingParams{
		ID:         uuid.NewString(),
		ResourceID: &resourceID,
		Content:    content,
		Vector:     v,
	})
	if err != nil {
		return fmt.Errorf("inserting embedding for resource %q: %w", resourceID, err)
	}
	return nil
}

func (s *Store) saveImageSatellite(ctx context.Context, img note.ImageMeta) error {
	blob, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("encoding image metadata: %w", err)
	}

	imageID := uuid.NewString()
	if err := s.queries.UpsertResource(ctx, imageID, string(blob)); err != nil {
		return fmt.Errorf("saving image resource: %w", err)
	}

	vector, err := s.embedder.Embed(ctx, img.Alt)
	if err != nil {
		return fmt.Errorf("embedding image caption: %w", err)
	}

	err = s.queries.InsertEmbedding(ctx, InsertEmbeddingParams{
		ID:         uuid.NewString(),
		ResourceID: &imageID,
		Content:    img.Alt,
		Vector:     pgvector.NewVector(vector),
	})
	if err != nil {
		return fmt.Errorf("inserting image embedding: %w", err)
	}
	return nil
}

// CreateFromText stores arbitrary text as a new searchable resource, one
// embedding row per sentence chunk. This backs the chat add_resource tool.
func (s *Store) CreateFromText(ctx context.Context, content string) (string, error) {
	resourceID := uuid.NewString()
	if err := s.queries.UpsertResource(ctx, resourceID, content); err != nil {
		return "", fmt.Errorf("saving resource: %w", err)
	}

	chunks, err := s.embedder.EmbedChunks(ctx, content)
	if err != nil {
		return "", fmt.Errorf("embedding content: %w", err)
	}
	for _, chunk := range chunks {
		err := s.queries.InsertEmbedding(ctx, InsertEmbeddingParams{
			ID:         uuid.NewString(),
			ResourceID: &resourceID,
			Content:    chunk.Content,
			Vector:     pgvector.NewVector(chunk.Vector),
		})
		if err != nil {
			return "", fmt.Errorf("inserting chunk embedding: %w", err)
		}
	}

	s.logger.Debug("created resource from text", "id", resourceID, "chunks", len(chunks))
	return resourceID, nil
}

// Get fetches a resource and parses its content blob. A blob that parses
// cleanly yields the extracted plain text as Content; one that fails to parse
// yields a fallback view preserving the raw text. A missing identifier yields
// ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Note, error) {
	row, err := s.queries.GetResource(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("fetching resource %q: %w", id, err)
	}

	meta, ok := note.ParseMeta(row.Content, row.ID)
	content := row.Content
	if ok {
		content = note.ExtractText(meta.JSONContent)
	}
	return &Note{
		ID:        row.ID,
		Content:   content,
		Meta:      meta,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// List returns note summaries ordered by most recently updated. Rows whose
// blobs fail to parse are listed with zero-value fields rather than skipped.
func (s *Store) List(ctx context.Context, page, pageSize int32) ([]Summary, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.queries.ListResources(ctx, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}

	summaries := make([]Summary, 0, len(rows))
	for _, row := range rows {
		var meta note.Meta
		if err := json.Unmarshal([]byte(row.Content), &meta); err != nil {
			s.logger.Warn("unparsable content blob in listing", "id", row.ID, "error", err)
			meta = note.Meta{}
		}
		title := meta.Title
		if title == "" {
			title = "Untitled Note"
		}
		summaries = append(summaries, Summary{
			ID:              row.ID,
			Title:           title,
			UpdatedAt:       row.UpdatedAt,
			WordCount:       meta.WordCount,
			HTMLContent:     meta.HTMLContent,
			MarkdownContent: meta.MarkdownContent,
			JSONContent:     meta.JSONContent,
			Images:          meta.Images,
		})
	}
	return summaries, nil
}

// Delete removes a resource; the schema cascades to its embeddings.
func (s *Store) Delete(ctx context.Context, id string) error {
	affected, err := s.queries.DeleteResource(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting resource %q: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.logger.Debug("deleted resource", "id", id)
	return nil
}

// UpdateTitle rewrites the title field of a stored content blob.
// Returns changed=false when the stored title already matches.
// A blob that cannot be parsed is an error here, not a fallback: rewriting
// on top of corrupt content would mask it.
func (s *Store) UpdateTitle(ctx context.Context, id, title string) (changed bool, err error) {
	row, err := s.queries.GetResource(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return false, fmt.Errorf("fetching resource %q: %w", id, err)
	}

	var blob map[string]json.RawMessage
	if err := json.Unmarshal([]byte(row.Content), &blob); err != nil {
		return false, fmt.Errorf("invalid note content format for %q: %w", id, err)
	}

	var current string
	if raw, ok := blob["title"]; ok {
		_ = json.Unmarshal(raw, &current)
	}
	if current == title {
		return false, nil
	}

	encoded, err := json.Marshal(title)
	if err != nil {
		return false, fmt.Errorf("encoding title: %w", err)
	}
	blob["title"] = encoded

	updated, err := json.Marshal(blob)
	if err != nil {
		return false, fmt.Errorf("encoding content blob: %w", err)
	}

	if err := s.queries.UpsertResource(ctx, id, string(updated)); err != nil {
		return false, fmt.Errorf("updating title for %q: %w", id, err)
	}

	s.logger.Debug("updated note title", "id", id)
	return true, nil
}
