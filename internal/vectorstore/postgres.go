package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresQuerier implements Querier against PostgreSQL + pgvector.
// Vector types must be registered on the pool's connections
// (see app.Setup, pgxvector.RegisterTypes).
type PostgresQuerier struct {
	pool *pgxpool.Pool
}

// NewPostgresQuerier creates a Querier backed by the given pool.
func NewPostgresQuerier(pool *pgxpool.Pool) *PostgresQuerier {
	return &PostgresQuerier{pool: pool}
}

const insertRowSQL = `
INSERT INTO content_vectors (id, content_id, creator_id, content_text, source_type, embedding, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// InsertRow inserts a single chunk row. Inserts only — rows are immutable
// and replaced wholesale by re-ingestion.
func (q *PostgresQuerier) InsertRow(ctx context.Context, row Row) error {
	metadataJSON, err := json.Marshal(row.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = q.pool.Exec(ctx, insertRowSQL,
		row.ID,
		row.ContentID,
		row.CreatorID,
		row.Text,
		row.SourceType,
		pgvector.NewVector(row.Embedding),
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting row %q: %w", row.ID, err)
	}
	return nil
}

const searchNearestSQL = `
SELECT id, content_id, creator_id, content_text, source_type, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM content_vectors
ORDER BY embedding <=> $1
LIMIT $2`

// SearchNearest performs cosine nearest-neighbor search across all tenants.
// Applies a query timeout so a slow vector scan cannot block the request
// indefinitely.
func (q *PostgresQuerier) SearchNearest(ctx context.Context, embedding []float32, limit int32) ([]Hit, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := q.pool.Query(queryCtx, searchNearestSQL, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var metadataJSON []byte
		if err := rows.Scan(&h.ID, &h.ContentID, &h.CreatorID, &h.Text, &h.SourceType,
			&metadataJSON, &h.CreatedAt, &h.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &h.Metadata); err != nil {
			// Malformed metadata makes the row unfilterable but not fatal.
			h.Metadata = map[string]string{}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}
	return hits, nil
}

// DeleteByContentID removes all rows for a content ID.
func (q *PostgresQuerier) DeleteByContentID(ctx context.Context, contentID string) (int64, error) {
	tag, err := q.pool.Exec(ctx, `DELETE FROM content_vectors WHERE content_id = $1`, contentID)
	if err != nil {
		return 0, fmt.Errorf("deleting rows for content %q: %w", contentID, err)
	}
	return tag.RowsAffected(), nil
}

// CountByCreator counts rows owned by the creator.
func (q *PostgresQuerier) CountByCreator(ctx context.Context, creatorID string) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx,
		`SELECT count(*) FROM content_vectors WHERE creator_id = $1`, creatorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting rows for creator %q: %w", creatorID, err)
	}
	return count, nil
}
