// Package embed converts chunk texts into fixed-length vectors via a hosted
// embedding model.
//
// The whole batch succeeds or fails as a unit: a partial response is treated
// as an error so callers never commit a vector set that does not line up
// one-to-one, in order, with its chunks.
package embed

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// DefaultModel is the embedding model used for all stored vectors.
// Changing models invalidates previously stored vectors; the model name is
// stamped into every row's metadata so a future migration can tell legacy
// vectors apart.
const DefaultModel = "text-embedding-ada-002"

// DefaultDimension is the output dimensionality of DefaultModel.
// The content_vectors schema declares vector(1536) to match.
const DefaultDimension = 1536

// Embedder converts ordered texts into one vector per text, order preserved.
// Implementations must not mutate the input texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// GenkitEmbedder adapts a Genkit ai.Embedder to the pipeline's Embedder
// contract. All texts are sent as a single request so the hosted call either
// embeds everything or nothing.
type GenkitEmbedder struct {
	embedder ai.Embedder
	model    string
}

// NewGenkitEmbedder wraps the given ai.Embedder.
// model is recorded for metadata stamping; empty uses DefaultModel.
func NewGenkitEmbedder(embedder ai.Embedder, model string) *GenkitEmbedder {
	if model == "" {
		model = DefaultModel
	}
	return &GenkitEmbedder{embedder: embedder, model: model}
}

// Model returns the embedding model identifier used for stored vectors.
func (e *GenkitEmbedder) Model() string {
	return e.model
}

// EmbedBatch embeds all texts in one hosted call.
// The returned slice has exactly one vector per input text in input order.
// Any shortfall in the response fails the whole batch.
func (e *GenkitEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}

	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("embedding batch of %d texts: %w", len(texts), err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d texts",
			len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text.
func (e *GenkitEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
