package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fanlore/fanlore/internal/vectorstore"
)

type fakeQueryEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeQueryEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeSearcher struct {
	hits      []vectorstore.Hit
	err       error
	lastLimit int32
	calls     int
}

func (f *fakeSearcher) SearchNearest(_ context.Context, _ []float32, limit int32) ([]vectorstore.Hit, error) {
	f.calls++
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func ownedHit(id, creatorID string) vectorstore.Hit {
	return vectorstore.Hit{
		ID:        id,
		CreatorID: creatorID,
		Text:      "chunk " + id,
		Metadata:  map[string]string{vectorstore.MetaCreatorID: creatorID},
	}
}

func TestRetrieveFiltersByOwner(t *testing.T) {
	searcher := &fakeSearcher{hits: []vectorstore.Hit{
		ownedHit("a", "other"),
		ownedHit("b", "alice"),
		ownedHit("c", "other"),
		ownedHit("d", "alice"),
	}}
	r := NewRetriever(&fakeQueryEmbedder{vec: []float32{0.1}}, searcher, nil)

	hits, err := r.Retrieve(context.Background(), "q", "alice", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	for _, h := range hits {
		if h.Metadata[vectorstore.MetaCreatorID] != "alice" {
			t.Errorf("hit %s leaked from creator %q", h.ID, h.Metadata[vectorstore.MetaCreatorID])
		}
	}
}

func TestRetrieveOverFetches(t *testing.T) {
	searcher := &fakeSearcher{hits: []vectorstore.Hit{ownedHit("a", "alice")}}
	r := NewRetriever(&fakeQueryEmbedder{vec: []float32{0.1}}, searcher, nil)

	if _, err := r.Retrieve(context.Background(), "q", "alice", 5); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if searcher.lastLimit != 15 {
		t.Errorf("search limit = %d, want 15 (3x over-fetch for k=5)", searcher.lastLimit)
	}
}

func TestRetrieveTruncatesToK(t *testing.T) {
	var hits []vectorstore.Hit
	for i := range 9 {
		hits = append(hits, ownedHit(fmt.Sprintf("h%d", i), "alice"))
	}
	searcher := &fakeSearcher{hits: hits}
	r := NewRetriever(&fakeQueryEmbedder{vec: []float32{0.1}}, searcher, nil)

	got, err := r.Retrieve(context.Background(), "q", "alice", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d hits, want 3", len(got))
	}
	// Nearest hits survive truncation in order.
	for i, h := range got {
		if want := fmt.Sprintf("h%d", i); h.ID != want {
			t.Errorf("hit[%d].ID = %q, want %q", i, h.ID, want)
		}
	}
}

func TestRetrieveNoContent(t *testing.T) {
	tests := []struct {
		name string
		hits []vectorstore.Hit
	}{
		{name: "empty search", hits: nil},
		{name: "all other tenants", hits: []vectorstore.Hit{ownedHit("a", "other"), ownedHit("b", "other")}},
		{name: "missing creator metadata", hits: []vectorstore.Hit{{ID: "a", Text: "orphan"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetriever(&fakeQueryEmbedder{vec: []float32{0.1}}, &fakeSearcher{hits: tt.hits}, nil)
			_, err := r.Retrieve(context.Background(), "q", "alice", 5)
			if !errors.Is(err, ErrNoContent) {
				t.Errorf("Retrieve() error = %v, want ErrNoContent", err)
			}
		})
	}
}

func TestRetrieveErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing creator ID", func(t *testing.T) {
		embedder := &fakeQueryEmbedder{vec: []float32{0.1}}
		r := NewRetriever(embedder, &fakeSearcher{}, nil)
		if _, err := r.Retrieve(ctx, "q", "", 5); err == nil {
			t.Fatal("Retrieve() with empty creator ID should fail")
		}
		if embedder.calls != 0 {
			t.Error("embedder should not be called when validation fails")
		}
	})

	t.Run("embed failure", func(t *testing.T) {
		searcher := &fakeSearcher{}
		r := NewRetriever(&fakeQueryEmbedder{err: errors.New("quota exceeded")}, searcher, nil)
		if _, err := r.Retrieve(ctx, "q", "alice", 5); err == nil {
			t.Fatal("Retrieve() should surface embed failure")
		}
		if searcher.calls != 0 {
			t.Error("search should not run after embed failure")
		}
	})

	t.Run("search failure", func(t *testing.T) {
		r := NewRetriever(&fakeQueryEmbedder{vec: []float32{0.1}}, &fakeSearcher{err: errors.New("connection refused")}, nil)
		_, err := r.Retrieve(ctx, "q", "alice", 5)
		if err == nil {
			t.Fatal("Retrieve() should surface search failure")
		}
		if errors.Is(err, ErrNoContent) {
			t.Error("search failure must not masquerade as ErrNoContent")
		}
	})
}

func TestRetrieveDefaultK(t *testing.T) {
	searcher := &fakeSearcher{hits: []vectorstore.Hit{ownedHit("a", "alice")}}
	r := NewRetriever(&fakeQueryEmbedder{vec: []float32{0.1}}, searcher, nil)

	if _, err := r.Retrieve(context.Background(), "q", "alice", 0); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if want := int32(DefaultTopK * 3); searcher.lastLimit != want {
		t.Errorf("search limit = %d, want %d", searcher.lastLimit, want)
	}
}
