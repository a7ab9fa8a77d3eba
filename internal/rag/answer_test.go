package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fanlore/fanlore/internal/vectorstore"
)

type fakeGenerator struct {
	text       string
	err        error
	calls      int
	lastSystem string
	lastPrompt string
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newTestAnswerer(t *testing.T, searcher *fakeSearcher, gen *fakeGenerator) *Answerer {
	t.Helper()
	retriever := NewRetriever(&fakeQueryEmbedder{vec: []float32{0.1}}, searcher, nil)
	a, err := NewAnswerer(retriever, gen, 5, nil)
	if err != nil {
		t.Fatalf("NewAnswerer() error = %v", err)
	}
	return a
}

func TestAnswerBuildsContextPrompt(t *testing.T) {
	hit := ownedHit("a", "alice")
	hit.ContentID = "content-1"
	hit.SourceType = "pdf"
	hit.Text = "Shipping starts in March."
	hit.Similarity = 0.92

	gen := &fakeGenerator{text: "It starts in March."}
	a := newTestAnswerer(t, &fakeSearcher{hits: []vectorstore.Hit{hit}}, gen)

	answer, err := a.Answer(context.Background(), "When does shipping start?", "alice")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "It starts in March." {
		t.Errorf("answer text = %q", answer.Text)
	}
	if gen.calls != 1 {
		t.Fatalf("generator called %d times, want 1", gen.calls)
	}
	if gen.lastPrompt != "When does shipping start?" {
		t.Errorf("prompt = %q, want the raw question", gen.lastPrompt)
	}
	if !strings.Contains(gen.lastSystem, "Shipping starts in March.") {
		t.Error("system prompt missing retrieved chunk text")
	}
	if !strings.Contains(gen.lastSystem, "BEGIN CONTEXT") || !strings.Contains(gen.lastSystem, "END CONTEXT") {
		t.Error("system prompt missing context delimiters")
	}
	if !strings.Contains(gen.lastSystem, FallbackAnswer) {
		t.Error("system prompt missing the fallback sentence instruction")
	}
	if !strings.Contains(gen.lastSystem, "tone and style of the") {
		t.Error("system prompt missing the creator-tone directive")
	}

	if len(answer.Sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(answer.Sources))
	}
	src := answer.Sources[0]
	if src.ContentID != "content-1" || src.SourceType != "pdf" || src.Similarity != 0.92 {
		t.Errorf("source = %+v", src)
	}
	if src.Text != "Shipping starts in March." {
		t.Errorf("source text = %q, want the chunk text", src.Text)
	}
}

func TestAnswerFallbackSkipsModel(t *testing.T) {
	tests := []struct {
		name string
		hits []vectorstore.Hit
	}{
		{name: "empty index", hits: nil},
		{name: "only foreign content", hits: []vectorstore.Hit{ownedHit("a", "other")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{text: "should never appear"}
			a := newTestAnswerer(t, &fakeSearcher{hits: tt.hits}, gen)

			answer, err := a.Answer(context.Background(), "anything", "alice")
			if err != nil {
				t.Fatalf("Answer() error = %v, fallback must not be an error", err)
			}
			if answer.Text != FallbackAnswer {
				t.Errorf("answer = %q, want fallback", answer.Text)
			}
			if len(answer.Sources) != 0 {
				t.Errorf("fallback answer carries %d sources, want 0", len(answer.Sources))
			}
			if gen.calls != 0 {
				t.Errorf("generator called %d times with empty context, want 0", gen.calls)
			}
		})
	}
}

func TestAnswerSourceLinks(t *testing.T) {
	video := ownedHit("v", "alice")
	video.ContentID = "yt-1"
	video.SourceType = "youtube"
	video.Metadata[vectorstore.MetaVideoURL] = "https://youtube.com/watch?v=abc"

	reel := ownedHit("r", "alice")
	reel.ContentID = "ig-1"
	reel.SourceType = "instagram"
	reel.Metadata[vectorstore.MetaReelURL] = "https://instagram.com/reel/xyz"

	a := newTestAnswerer(t, &fakeSearcher{hits: []vectorstore.Hit{video, reel}}, &fakeGenerator{text: "ok"})

	answer, err := a.Answer(context.Background(), "q", "alice")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(answer.Sources))
	}
	if answer.Sources[0].VideoURL != "https://youtube.com/watch?v=abc" {
		t.Errorf("video URL = %q", answer.Sources[0].VideoURL)
	}
	if answer.Sources[1].ReelURL != "https://instagram.com/reel/xyz" {
		t.Errorf("reel URL = %q", answer.Sources[1].ReelURL)
	}
	if answer.Sources[0].Text != "chunk v" || answer.Sources[1].Text != "chunk r" {
		t.Errorf("source texts = %q, %q, want the chunk texts", answer.Sources[0].Text, answer.Sources[1].Text)
	}
}

func TestAnswerErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("retrieval failure surfaces", func(t *testing.T) {
		gen := &fakeGenerator{}
		a := newTestAnswerer(t, &fakeSearcher{err: errors.New("db down")}, gen)
		if _, err := a.Answer(ctx, "q", "alice"); err == nil {
			t.Fatal("Answer() should surface retrieval failure")
		}
		if gen.calls != 0 {
			t.Error("generator must not run after retrieval failure")
		}
	})

	t.Run("generation failure surfaces", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("model unavailable")}
		a := newTestAnswerer(t, &fakeSearcher{hits: []vectorstore.Hit{ownedHit("a", "alice")}}, gen)
		if _, err := a.Answer(ctx, "q", "alice"); err == nil {
			t.Fatal("Answer() should surface generation failure")
		}
	})
}

func TestNewAnswererValidation(t *testing.T) {
	retriever := NewRetriever(&fakeQueryEmbedder{}, &fakeSearcher{}, nil)

	if _, err := NewAnswerer(nil, &fakeGenerator{}, 5, nil); err == nil {
		t.Error("NewAnswerer() without retriever should fail")
	}
	if _, err := NewAnswerer(retriever, nil, 5, nil); err == nil {
		t.Error("NewAnswerer() without generator should fail")
	}
	if a, err := NewAnswerer(retriever, &fakeGenerator{}, 0, nil); err != nil {
		t.Errorf("NewAnswerer() error = %v", err)
	} else if a.topK != DefaultTopK {
		t.Errorf("topK = %d, want default %d", a.topK, DefaultTopK)
	}
}
