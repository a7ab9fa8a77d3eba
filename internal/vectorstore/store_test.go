package vectorstore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// fakeQuerier implements Querier in memory for testing.
type fakeQuerier struct {
	insertErrAt  map[int]error // call index (0-based) -> error
	searchErr    error
	searchHits   []Hit
	deleteErr    error
	deletedCount int64

	inserted   []Row
	insertCall int
	lastDelete string
}

func (f *fakeQuerier) InsertRow(ctx context.Context, row Row) error {
	call := f.insertCall
	f.insertCall++
	if err, ok := f.insertErrAt[call]; ok {
		return err
	}
	f.inserted = append(f.inserted, row)
	return nil
}

func (f *fakeQuerier) SearchNearest(ctx context.Context, embedding []float32, limit int32) ([]Hit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if int(limit) < len(f.searchHits) {
		return f.searchHits[:limit], nil
	}
	return f.searchHits, nil
}

func (f *fakeQuerier) DeleteByContentID(ctx context.Context, contentID string) (int64, error) {
	f.lastDelete = contentID
	return f.deletedCount, f.deleteErr
}

func (f *fakeQuerier) CountByCreator(ctx context.Context, creatorID string) (int64, error) {
	var n int64
	for _, r := range f.inserted {
		if r.CreatorID == creatorID {
			n++
		}
	}
	return n, nil
}

func testRows(n int, creatorID string) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			ContentID:  "content-1",
			CreatorID:  creatorID,
			Text:       "chunk text",
			SourceType: "pdf",
			Embedding:  []float32{0.1, 0.2},
			Metadata: map[string]string{
				MetaContentID:  "content-1",
				MetaSourceType: "pdf",
				MetaCreatorID:  creatorID,
			},
		}
	}
	return rows
}

func TestWriteAllAssignsFreshIDs(t *testing.T) {
	fake := &fakeQuerier{}
	store := New(fake, slog.Default())

	results := store.WriteAll(context.Background(), testRows(3, "creator-a"))

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	seen := map[string]bool{}
	for i, res := range results {
		if res.Err != nil {
			t.Errorf("result %d unexpected error: %v", i, res.Err)
		}
		if res.ID == "" {
			t.Errorf("result %d has empty ID", i)
		}
		if seen[res.ID] {
			t.Errorf("ID %q reused", res.ID)
		}
		seen[res.ID] = true
	}
	if len(fake.inserted) != 3 {
		t.Errorf("inserted %d rows, want 3", len(fake.inserted))
	}
}

func TestWriteAllPartialFailure(t *testing.T) {
	// A failure on chunk 1 must not roll back chunk 0 or prevent chunk 2.
	insertErr := errors.New("connection reset")
	fake := &fakeQuerier{insertErrAt: map[int]error{1: insertErr}}
	store := New(fake, slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)))

	results := store.WriteAll(context.Background(), testRows(3, "creator-a"))

	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("surrounding rows must succeed: %v, %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, insertErr) {
		t.Errorf("result 1 error = %v, want %v", results[1].Err, insertErr)
	}
	if len(fake.inserted) != 2 {
		t.Errorf("inserted %d rows, want 2", len(fake.inserted))
	}
}

func TestWriteAllWarnsOnMissingCreatorMetadata(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	fake := &fakeQuerier{}
	store := New(fake, logger)

	rows := testRows(1, "creator-a")
	delete(rows[0].Metadata, MetaCreatorID)

	results := store.WriteAll(context.Background(), rows)

	// The row is still written: missing metadata is a gap, not a hard error.
	if results[0].Err != nil {
		t.Fatalf("unexpected error: %v", results[0].Err)
	}
	if !strings.Contains(buf.String(), "missing creator_id") {
		t.Errorf("expected warning about missing creator_id, log: %s", buf.String())
	}
}

func TestWriteAllEmpty(t *testing.T) {
	store := New(&fakeQuerier{}, nil)
	results := store.WriteAll(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestDeleteContent(t *testing.T) {
	fake := &fakeQuerier{deletedCount: 4}
	store := New(fake, slog.Default())

	deleted, err := store.DeleteContent(context.Background(), "content-9")
	if err != nil {
		t.Fatalf("DeleteContent: %v", err)
	}
	if deleted != 4 {
		t.Errorf("deleted = %d, want 4", deleted)
	}
	if fake.lastDelete != "content-9" {
		t.Errorf("deleted content %q, want content-9", fake.lastDelete)
	}
}

func TestDeleteContentError(t *testing.T) {
	fake := &fakeQuerier{deleteErr: errors.New("timeout")}
	store := New(fake, slog.Default())

	if _, err := store.DeleteContent(context.Background(), "content-9"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchNearestPassthrough(t *testing.T) {
	hits := []Hit{
		{ID: "a", Similarity: 0.9},
		{ID: "b", Similarity: 0.7},
	}
	fake := &fakeQuerier{searchHits: hits}
	store := New(fake, slog.Default())

	got, err := store.SearchNearest(context.Background(), []float32{0.1}, 10)
	if err != nil {
		t.Fatalf("SearchNearest: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" {
		t.Errorf("unexpected hits: %+v", got)
	}
}
