package vectorstore

import "time"

// Metadata keys stored on every row. The retriever filters on MetaCreatorID;
// rows written without it are invisible to owner-scoped retrieval.
const (
	MetaContentID      = "contentId"
	MetaSourceType     = "sourceType"
	MetaCreatorID      = "creator_id"
	MetaEmbeddingModel = "embedding_model"
	MetaVideoURL       = "videoUrl"
	MetaReelURL        = "reelUrl"
)

// Row is one persisted chunk: text, its vector, and filter metadata.
// Rows are never updated; a content's rows are replaced wholesale on
// re-ingestion.
type Row struct {
	ID         string
	ContentID  string
	CreatorID  string
	Text       string
	SourceType string
	Embedding  []float32
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Hit is a nearest-neighbor search result with its similarity score.
type Hit struct {
	ID         string
	ContentID  string
	CreatorID  string
	Text       string
	SourceType string
	Metadata   map[string]string
	CreatedAt  time.Time
	Similarity float32
}

// WriteResult reports the outcome of persisting a single row.
// A nil Err means the row was written.
type WriteResult struct {
	ID  string
	Err error
}
