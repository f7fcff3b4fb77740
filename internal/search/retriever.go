// Package search ranks stored embeddings against a query by cosine
// similarity. It is the grounding step the chat endpoint runs before the
// model answers.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/quillnotes/quill/internal/embedding"
)

const (
	// SimilarityThreshold filters out matches too distant to be useful
	// grounding material.
	SimilarityThreshold = 0.5

	// MaxResults caps how many matches a single query returns.
	MaxResults = 4

	// queryTimeout bounds the vector search so a slow scan cannot block
	// a chat request indefinitely.
	queryTimeout = 10 * time.Second
)

// Result is one relevance match.
type Result struct {
	Content    string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// Querier defines the database operation Retriever depends on.
type Querier interface {
	SearchEmbeddings(ctx context.Context, vector pgvector.Vector, threshold float64, limit int32) ([]Result, error)
}

// Retriever embeds a query string and ranks stored embeddings against it.
type Retriever struct {
	queries  Querier
	embedder embedding.Generator
	logger   *slog.Logger
}

// New creates a Retriever.
func New(queries Querier, embedder embedding.Generator, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		queries:  queries,
		embedder: embedder,
		logger:   logger,
	}
}

// FindRelevant returns the stored content most similar to the query:
// at most MaxResults rows, each with similarity above SimilarityThreshold,
// in descending similarity order. No match above the threshold is an empty
// result set, not an error.
func (r *Retriever) FindRelevant(ctx context.Context, query string) ([]Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	vector, err := r.embedder.Embed(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.queries.SearchEmbeddings(queryCtx, pgvector.NewVector(vector), SimilarityThreshold, MaxResults)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("similarity search timeout: %w", err)
		}
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	r.logger.Debug("relevance retrieval", "query_length", len(query), "matches", len(results))
	return results, nil
}

// Queries is the pgx-backed Querier implementation.
type Queries struct {
	db DBTX
}

// DBTX is the subset of pgx operations the search queries need.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewQueries creates the pgx-backed query layer.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// Cosine similarity in pgvector is 1 minus the cosine distance operator.
// The HNSW index on the embeddings table serves the ORDER BY.
const searchEmbeddings = `
SELECT content, 1 - (embedding <=> $1) AS similarity
FROM embeddings
WHERE 1 - (embedding <=> $1) > $2
ORDER BY similarity DESC
LIMIT $3
`

func (q *Queries) SearchEmbeddings(ctx context.Context, vector pgvector.Vector, threshold float64, limit int32) ([]Result, error) {
	rows, err := q.db.Query(ctx, searchEmbeddings, vector, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var res Result
		if err := rows.Scan(&res.Content, &res.Similarity); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
