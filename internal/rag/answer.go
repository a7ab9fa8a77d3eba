package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/fanlore/fanlore/internal/vectorstore"
)

// FallbackAnswer is returned verbatim whenever retrieval finds no content for
// the creator. The chat model is never called in that case.
const FallbackAnswer = "Sorry, I couldn't find an answer to that in the content."

// DefaultChatModel is the model used when the config leaves it unset.
const DefaultChatModel = "gpt-4.1"

const systemPromptHeader = `You are a helpful assistant that responds in the tone and style of the
creator. Answer using only the creator's actual content in the context
below. Do not make up facts. If the context does not contain a relevant
answer, simply say: "` + FallbackAnswer + `"

--- BEGIN CONTEXT ---
`

const systemPromptFooter = `
--- END CONTEXT ---`

// Generator produces a completion from a system prompt and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Source is one chunk of content that grounded an answer, carrying the
// chunk text so callers can cite it.
type Source struct {
	ContentID  string  `json:"contentId"`
	SourceType string  `json:"sourceType"`
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
	VideoURL   string  `json:"videoUrl,omitempty"`
	ReelURL    string  `json:"reelUrl,omitempty"`
}

// Answer is the pipeline's final output.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Answerer ties retrieval and generation together.
type Answerer struct {
	retriever *Retriever
	generator Generator
	topK      int
	logger    *slog.Logger
}

// NewAnswerer creates an Answerer. topK <= 0 falls back to DefaultTopK.
func NewAnswerer(retriever *Retriever, generator Generator, topK int, logger *slog.Logger) (*Answerer, error) {
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{retriever: retriever, generator: generator, topK: topK, logger: logger}, nil
}

// Answer runs the full read path for one question. Retrieval that finds no
// content for the creator yields FallbackAnswer with no sources and a nil
// error; any other failure is returned to the caller.
func (a *Answerer) Answer(ctx context.Context, question, creatorID string) (Answer, error) {
	hits, err := a.retriever.Retrieve(ctx, question, creatorID, a.topK)
	if err != nil {
		if errors.Is(err, ErrNoContent) {
			a.logger.Info("no content for creator, returning fallback", "creator_id", creatorID)
			return Answer{Text: FallbackAnswer, Sources: []Source{}}, nil
		}
		return Answer{}, err
	}

	system := buildSystemPrompt(hits)

	text, err := a.generator.Generate(ctx, system, question)
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}

	return Answer{Text: text, Sources: sourcesFromHits(hits)}, nil
}

func buildSystemPrompt(hits []vectorstore.Hit) string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(hit.Text)
	}
	b.WriteString(systemPromptFooter)
	return b.String()
}

func sourcesFromHits(hits []vectorstore.Hit) []Source {
	sources := make([]Source, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, Source{
			ContentID:  hit.ContentID,
			SourceType: hit.SourceType,
			Text:       hit.Text,
			Similarity: hit.Similarity,
			VideoURL:   hit.Metadata[vectorstore.MetaVideoURL],
			ReelURL:    hit.Metadata[vectorstore.MetaReelURL],
		})
	}
	return sources
}

// GenkitGenerator backs Generator with a genkit-registered chat model.
type GenkitGenerator struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenkitGenerator creates a GenkitGenerator. modelName must be the full
// provider-qualified name, for example "openai/gpt-4.1".
func NewGenkitGenerator(g *genkit.Genkit, modelName string) (*GenkitGenerator, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}
	if modelName == "" {
		return nil, errors.New("model name is required")
	}
	return &GenkitGenerator{g: g, modelName: modelName}, nil
}

// Generate runs a single completion.
func (gg *GenkitGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(gg.modelName),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
	}

	response, err := genkit.Generate(ctx, gg.g, opts...)
	if err != nil {
		return "", fmt.Errorf("model generation failed: %w", err)
	}
	return response.Text(), nil
}
