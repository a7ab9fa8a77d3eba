// Package ingest drives the write path of the answer pipeline:
// chunk -> embed -> write, for a single piece of source content.
//
// Ingestion runs as a background side effect of uploads and scrapes, so it
// never fails the triggering request over missing inputs: an empty transcript
// or an unresolvable creator is a logged soft skip, not an error. Hosted-call
// failures halt progression for that content with no automatic retry; the
// `fanlore ingest` command re-invokes the pipeline manually.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fanlore/fanlore/internal/chunk"
	"github.com/fanlore/fanlore/internal/content"
	"github.com/fanlore/fanlore/internal/embed"
	"github.com/fanlore/fanlore/internal/vectorstore"
)

// State tracks how far an ingestion progressed. A failure leaves the result
// at the last completed state.
type State string

// Ingestion states, in order of progression.
const (
	StatePending  State = "pending"
	StateChunked  State = "chunked"
	StateEmbedded State = "embedded"
	StateWritten  State = "written"
	StateComplete State = "complete"
)

// Skip reasons for soft no-ops.
const (
	SkipEmptyTranscript = "empty transcript"
	SkipUnknownCreator  = "creator not resolved"
)

// Result reports the outcome of one ingestion run.
type Result struct {
	State      State
	Skipped    bool
	SkipReason string
	Chunks     int
	Written    int
	Failed     int
	Replaced   int64 // rows deleted before rewrite
}

// CreatorResolver resolves the owning creator for a piece of content.
type CreatorResolver interface {
	ResolveCreator(ctx context.Context, id string) (content.Creator, error)
}

// VectorWriter persists chunk rows and clears a content's previous rows.
type VectorWriter interface {
	WriteAll(ctx context.Context, rows []vectorstore.Row) []vectorstore.WriteResult
	DeleteContent(ctx context.Context, contentID string) (int64, error)
}

// Option customizes metadata attached to every row of an ingestion.
type Option func(*rowMeta)

type rowMeta struct {
	videoURL string
	reelURL  string
}

// WithVideoURL attaches the originating video URL to row metadata.
func WithVideoURL(u string) Option {
	return func(m *rowMeta) { m.videoURL = u }
}

// WithReelURL attaches the originating reel URL to row metadata.
func WithReelURL(u string) Option {
	return func(m *rowMeta) { m.reelURL = u }
}

// Orchestrator runs the ingestion pipeline for source content.
// Each run is a pure function of its input plus the injected collaborators;
// there is no state carried between runs.
type Orchestrator struct {
	splitter   *chunk.Splitter
	embedder   embed.Embedder
	embedModel string
	creators   CreatorResolver
	writer     VectorWriter
	logger     *slog.Logger
}

// Config carries the orchestrator's dependencies.
type Config struct {
	Splitter   *chunk.Splitter
	Embedder   embed.Embedder
	EmbedModel string // stamped into row metadata
	Creators   CreatorResolver
	Writer     VectorWriter
	Logger     *slog.Logger
}

// New creates an Orchestrator. All collaborators except Logger are required.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Splitter == nil {
		return nil, errors.New("splitter is required")
	}
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.Creators == nil {
		return nil, errors.New("creator resolver is required")
	}
	if cfg.Writer == nil {
		return nil, errors.New("vector writer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.EmbedModel
	if model == "" {
		model = embed.DefaultModel
	}
	return &Orchestrator{
		splitter:   cfg.Splitter,
		embedder:   cfg.Embedder,
		embedModel: model,
		creators:   cfg.Creators,
		writer:     cfg.Writer,
		logger:     logger,
	}, nil
}

// Ingest runs chunk -> embed -> write for one piece of source content.
//
// Soft skips (empty transcript, unresolvable creator) return a Result with
// Skipped set and a nil error. A hosted-call failure returns the error with
// the Result's State showing the last completed step.
//
// Re-ingesting the same content ID deletes its previous rows before writing,
// so repeated runs replace rather than accumulate.
func (o *Orchestrator) Ingest(ctx context.Context, sc content.SourceContent, opts ...Option) (Result, error) {
	res := Result{State: StatePending}

	chunks := o.splitter.Split(sc.RawText)
	if len(chunks) == 0 {
		o.logger.Warn("skipping ingestion, nothing to ingest",
			"content_id", sc.ID, "reason", SkipEmptyTranscript)
		res.Skipped = true
		res.SkipReason = SkipEmptyTranscript
		return res, nil
	}

	creator, err := o.creators.ResolveCreator(ctx, sc.CreatorID)
	if errors.Is(err, content.ErrCreatorNotFound) {
		o.logger.Warn("skipping ingestion, owner not resolved",
			"content_id", sc.ID, "creator_id", sc.CreatorID)
		res.Skipped = true
		res.SkipReason = SkipUnknownCreator
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("resolving creator for content %q: %w", sc.ID, err)
	}

	res.State = StateChunked
	res.Chunks = len(chunks)
	o.logger.Debug("split content into chunks", "content_id", sc.ID, "chunks", len(chunks))

	vectors, err := o.embedder.EmbedBatch(ctx, chunk.Texts(chunks))
	if err != nil {
		return res, fmt.Errorf("embedding content %q: %w", sc.ID, err)
	}
	if len(vectors) != len(chunks) {
		return res, fmt.Errorf("content %q: %d vectors for %d chunks", sc.ID, len(vectors), len(chunks))
	}
	res.State = StateEmbedded

	// Replace, don't accumulate: clear any rows from a previous ingestion of
	// this content before writing the new set.
	replaced, err := o.writer.DeleteContent(ctx, sc.ID)
	if err != nil {
		return res, fmt.Errorf("clearing previous rows for content %q: %w", sc.ID, err)
	}
	res.Replaced = replaced

	var meta rowMeta
	for _, opt := range opts {
		opt(&meta)
	}

	rows := make([]vectorstore.Row, len(chunks))
	for i, c := range chunks {
		rows[i] = vectorstore.Row{
			ContentID:  sc.ID,
			CreatorID:  creator.ID,
			Text:       c.Text,
			SourceType: sc.SourceType,
			Embedding:  vectors[i],
			Metadata:   o.buildMetadata(sc, creator, meta),
		}
	}

	results := o.writer.WriteAll(ctx, rows)
	res.State = StateWritten
	for _, wr := range results {
		if wr.Err != nil {
			res.Failed++
		} else {
			res.Written++
		}
	}

	if res.Failed == 0 {
		res.State = StateComplete
	}
	o.logger.Info("ingestion finished",
		"content_id", sc.ID,
		"creator_id", creator.ID,
		"source_type", sc.SourceType,
		"state", res.State,
		"written", res.Written,
		"failed", res.Failed,
		"replaced", res.Replaced,
	)
	return res, nil
}

// buildMetadata assembles the per-row metadata map.
// creator_id is what the retriever's owner filter matches on; embedding_model
// lets a future model migration tell legacy vectors apart.
func (o *Orchestrator) buildMetadata(sc content.SourceContent, creator content.Creator, meta rowMeta) map[string]string {
	m := map[string]string{
		vectorstore.MetaContentID:      sc.ID,
		vectorstore.MetaSourceType:     sc.SourceType,
		vectorstore.MetaCreatorID:      creator.ID,
		vectorstore.MetaEmbeddingModel: o.embedModel,
	}
	if meta.videoURL != "" {
		m[vectorstore.MetaVideoURL] = meta.videoURL
	}
	if meta.reelURL != "" {
		m[vectorstore.MetaReelURL] = meta.reelURL
	}
	return m
}
