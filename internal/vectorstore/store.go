// Package vectorstore persists chunk vectors in PostgreSQL + pgvector and
// serves nearest-neighbor reads over them.
//
// Writes are deliberately non-transactional across chunks: each row is an
// independent insert against the hosted store, and a failure on one chunk
// does not roll back chunks already written. WriteAll therefore reports a
// per-row result list instead of failing as a unit, so callers can surface
// partial completion explicitly.
package vectorstore

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Querier defines the database operations Store depends on.
// The interface lives with the consumer, mirroring io.Reader and
// http.RoundTripper, so tests can substitute an in-memory fake.
type Querier interface {
	// InsertRow inserts a single chunk row.
	InsertRow(ctx context.Context, row Row) error

	// SearchNearest returns the rows nearest to the embedding, best first.
	// The search is not tenant-aware; callers filter by owner afterwards.
	SearchNearest(ctx context.Context, embedding []float32, limit int32) ([]Hit, error)

	// DeleteByContentID removes all rows for a content ID, returning the count.
	DeleteByContentID(ctx context.Context, contentID string) (int64, error)

	// CountByCreator counts rows owned by the creator.
	CountByCreator(ctx context.Context, creatorID string) (int64, error)
}

// Store manages content vector rows.
// Safe for concurrent use by multiple goroutines.
type Store struct {
	queries Querier
	logger  *slog.Logger
}

// New creates a Store backed by the given querier.
func New(queries Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: queries, logger: logger}
}

// WriteAll persists one row per chunk and reports a per-row result.
// Each row gets a fresh UUID; IDs are never reused. A failed insert is
// recorded in its result and does not stop the remaining rows.
//
// Rows missing the creator_id metadata key are still written, but logged as
// warnings: the nearest-neighbor search itself is not owner-aware, so such
// rows can never be returned by an owner-scoped retrieval.
func (s *Store) WriteAll(ctx context.Context, rows []Row) []WriteResult {
	results := make([]WriteResult, 0, len(rows))

	for i := range rows {
		row := rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.Metadata[MetaCreatorID] == "" {
			s.logger.Warn("row metadata missing creator_id, row will be unreachable by owner filter",
				"row_id", row.ID, "content_id", row.ContentID)
		}

		err := s.queries.InsertRow(ctx, row)
		if err != nil {
			s.logger.Error("inserting chunk row",
				"row_id", row.ID, "content_id", row.ContentID, "chunk", i, "error", err)
		} else {
			s.logger.Debug("wrote chunk row",
				"row_id", row.ID, "content_id", row.ContentID, "chunk", i)
		}
		results = append(results, WriteResult{ID: row.ID, Err: err})
	}
	return results
}

// SearchNearest returns the rows nearest to the embedding, best first.
func (s *Store) SearchNearest(ctx context.Context, embedding []float32, limit int32) ([]Hit, error) {
	return s.queries.SearchNearest(ctx, embedding, limit)
}

// DeleteContent removes every row belonging to a content ID.
// Used by re-ingestion to replace rather than accumulate rows.
func (s *Store) DeleteContent(ctx context.Context, contentID string) (int64, error) {
	deleted, err := s.queries.DeleteByContentID(ctx, contentID)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Debug("deleted existing rows for content", "content_id", contentID, "rows", deleted)
	}
	return deleted, nil
}

// CountByCreator counts stored rows owned by the creator.
func (s *Store) CountByCreator(ctx context.Context, creatorID string) (int64, error) {
	return s.queries.CountByCreator(ctx, creatorID)
}
