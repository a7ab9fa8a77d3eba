// Package rag implements the read path of the answer pipeline: retrieve a
// creator's nearest chunks for a question, then generate an answer
// constrained to that context.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fanlore/fanlore/internal/vectorstore"
)

// ErrNoContent signals that owner filtering left zero chunks for the query.
// Distinct from an empty result caused by a failed search: callers use it to
// emit the fixed fallback answer without touching the chat model.
var ErrNoContent = errors.New("no relevant content for creator")

// DefaultTopK is the number of chunks supplied as answer context.
const DefaultTopK = 5

// overFetchFactor is how many times k the nearest-neighbor search fetches
// before owner filtering. The vector search is not tenant-aware, so a plain
// k-sized fetch can come back entirely from other tenants when their content
// is more similar to the query text.
const overFetchFactor = 3

// QueryEmbedder embeds a single query text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Searcher performs a tenant-blind nearest-neighbor search.
type Searcher interface {
	SearchNearest(ctx context.Context, embedding []float32, limit int32) ([]vectorstore.Hit, error)
}

// Retriever fetches a creator's most relevant chunks for a query.
type Retriever struct {
	embedder QueryEmbedder
	store    Searcher
	logger   *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder QueryEmbedder, store Searcher, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, logger: logger}
}

// Retrieve embeds the query, over-fetches nearest neighbors, filters to rows
// whose creator_id metadata matches creatorID, and truncates to k.
//
// Returns ErrNoContent when owner filtering leaves nothing — the caller must
// not treat that as a transport failure.
func (r *Retriever) Retrieve(ctx context.Context, query, creatorID string, k int) ([]vectorstore.Hit, error) {
	if creatorID == "" {
		return nil, errors.New("creator ID is required")
	}
	if k <= 0 {
		k = DefaultTopK
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := r.store.SearchNearest(ctx, queryVec, int32(k*overFetchFactor))
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}

	filtered := make([]vectorstore.Hit, 0, k)
	for _, hit := range hits {
		if hit.Metadata[vectorstore.MetaCreatorID] != creatorID {
			continue
		}
		filtered = append(filtered, hit)
		if len(filtered) == k {
			break
		}
	}

	r.logger.Debug("retrieved chunks",
		"creator_id", creatorID,
		"fetched", len(hits),
		"kept", len(filtered),
	)

	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, creatorID)
	}
	return filtered, nil
}
