// Package chunk splits source transcripts into overlapping fixed-size
// segments, the unit of embedding and retrieval.
//
// Splitting is deterministic: the same input always yields the same chunks in
// the same order, so re-ingesting a piece of content is idempotent. Sizes are
// measured in runes, not bytes, so multi-byte text is never cut mid-character.
package chunk

import (
	"fmt"
	"strings"
)

// Default window geometry, matching the ingestion pipeline's historical
// 500/50 character split.
const (
	DefaultWindow  = 500
	DefaultOverlap = 50
)

// Chunk is a bounded substring of source text.
// Index is the stable position of the chunk within its source; downstream
// embeddings are matched to chunks by this order.
type Chunk struct {
	Text  string
	Index int
}

// Splitter produces overlapping windows over raw text.
type Splitter struct {
	window  int
	overlap int
}

// NewSplitter creates a Splitter with the given window and overlap sizes.
// Requires window > overlap >= 0 so that every step makes forward progress.
func NewSplitter(window, overlap int) (*Splitter, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must not be negative, got %d", overlap)
	}
	if overlap >= window {
		return nil, fmt.Errorf("overlap %d must be smaller than window %d", overlap, window)
	}
	return &Splitter{window: window, overlap: overlap}, nil
}

// Split divides text into ordered overlapping chunks.
// Consecutive chunks share exactly the overlap region; the final chunk may be
// shorter than the window but trailing text is never dropped.
//
// Empty or whitespace-only input yields nil — callers treat that as
// "nothing to ingest", not an error.
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	step := s.window - s.overlap

	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + s.window
		if end >= len(runes) {
			chunks = append(chunks, Chunk{Text: string(runes[start:]), Index: len(chunks)})
			break
		}
		chunks = append(chunks, Chunk{Text: string(runes[start:end]), Index: len(chunks)})
	}
	return chunks
}

// Split divides text using the default 500/50 geometry.
func Split(text string) []Chunk {
	s := &Splitter{window: DefaultWindow, overlap: DefaultOverlap}
	return s.Split(text)
}

// Texts returns just the chunk texts, preserving order.
func Texts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
