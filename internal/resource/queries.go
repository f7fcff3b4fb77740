package resource

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgx operations the queries need. Satisfied by
// *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries holds the hand-written SQL for the resources and embeddings tables.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// ResourceRow is one row of the resources table.
type ResourceRow struct {
	ID        string
	Content   string
	UpdatedAt time.Time
}

const upsertResource = `
INSERT INTO resources (id, content)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content, updated_at = now()
`

func (q *Queries) UpsertResource(ctx context.Context, id, content string) error {
	_, err := q.db.Exec(ctx, upsertResource, id, content)
	return err
}

const getResource = `
SELECT id, content, updated_at FROM resources WHERE id = $1 LIMIT 1
`

func (q *Queries) GetResource(ctx context.Context, id string) (ResourceRow, error) {
	var row ResourceRow
	err := q.db.QueryRow(ctx, getResource, id).Scan(&row.ID, &row.Content, &row.UpdatedAt)
	return row, err
}

const listResources = `
SELECT id, content, updated_at
FROM resources
ORDER BY updated_at DESC
LIMIT $1 OFFSET $2
`

func (q *Queries) ListResources(ctx context.Context, limit, offset int32) ([]ResourceRow, error) {
	rows, err := q.db.Query(ctx, listResources, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResourceRow
	for rows.Next() {
		var row ResourceRow
		if err := rows.Scan(&row.ID, &row.Content, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const deleteResource = `
DELETE FROM resources WHERE id = $1
`

func (q *Queries) DeleteResource(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteResource, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertEmbeddingParams carries one embedding row. ResourceID is nil for
// rows not owned by a resource.
type InsertEmbeddingParams struct {
	ID         string
	ResourceID *string
	Content    string
	Vector     pgvector.Vector
}

const insertEmbedding = `
INSERT INTO embeddings (id, resource_id, content, embedding)
VALUES ($1, $2, $3, $4)
`

func (q *Queries) InsertEmbedding(ctx context.Context, arg InsertEmbeddingParams) error {
	_, err := q.db.Exec(ctx, insertEmbedding, arg.ID, arg.ResourceID, arg.Content, arg.Vector)
	return err
}

const updateEmbeddingByResource = `
UPDATE embeddings
SET content = $1, embedding = $2, updated_at = now()
WHERE resource_id = $3
`

// UpdateEmbeddingByResource refreshes the embedding rows of a resource and
// returns how many rows were touched (0 = no embedding yet, caller inserts).
func (q *Queries) UpdateEmbeddingByResource(ctx context.Context, content string, vector pgvector.Vector, resourceID string) (int64, error) {
	tag, err := q.db.Exec(ctx, updateEmbeddingByResource, content, vector, resourceID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
