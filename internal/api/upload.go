package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/fanlore/fanlore/internal/content"
	"github.com/fanlore/fanlore/internal/ingest"
	"github.com/fanlore/fanlore/internal/pdf"
)

// ContentStore persists creators and their source content.
type ContentStore interface {
	EnsureCreator(ctx context.Context, id, email, name string) (content.Creator, error)
	CreateContent(ctx context.Context, sc content.SourceContent) (content.SourceContent, error)
}

// Ingestor runs the chunk-embed-write pipeline for one piece of content.
type Ingestor interface {
	Ingest(ctx context.Context, sc content.SourceContent, opts ...ingest.Option) (ingest.Result, error)
}

type uploadHandler struct {
	contents  ContentStore
	ingestor  Ingestor
	uploadDir string
	maxBytes  int64
	extract   func([]byte) (string, error)
	logger    *slog.Logger
}

// upload handles POST /api/files/upload: store the PDF, extract its text,
// create the content row, and ingest synchronously. Ingestion soft-skips
// (for example an image-only PDF with no transcript after extraction) never
// fail the upload.
func (h *uploadHandler) upload(w http.ResponseWriter, r *http.Request) {
	creatorID := r.Header.Get(userIDHeader)
	if creatorID == "" {
		writeError(w, http.StatusBadRequest, "Missing x-user-id header")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("reading upload failed", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	if !pdf.IsPDF(data) {
		writeError(w, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	text, err := h.extract(data)
	if err != nil && !errors.Is(err, pdf.ErrNoText) {
		h.logger.Error("PDF text extraction failed", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	storedName := uuid.New().String() + ".pdf"
	if err := h.storePDF(storedName, data); err != nil {
		h.logger.Error("storing upload failed", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	ctx := r.Context()
	if _, err := h.contents.EnsureCreator(ctx, creatorID, "", ""); err != nil {
		h.logger.Error("ensuring creator failed", "error", err, "creator_id", creatorID)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	sc, err := h.contents.CreateContent(ctx, content.SourceContent{
		CreatorID:  creatorID,
		SourceType: content.SourceTypePDF,
		Title:      header.Filename,
		RawText:    text,
	})
	if err != nil {
		h.logger.Error("creating content failed", "error", err, "creator_id", creatorID)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}

	result, err := h.ingestor.Ingest(ctx, sc)
	if err != nil {
		h.logger.Error("ingestion failed", "error", err, "content_id", sc.ID)
		writeError(w, http.StatusInternalServerError, "Upload failed")
		return
	}
	if result.Skipped {
		h.logger.Info("upload stored but not indexed",
			"content_id", sc.ID,
			"reason", result.SkipReason,
		)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "File uploaded and processed successfully",
		"fileUrl": "/uploads/" + storedName,
	})
}

func (h *uploadHandler) storePDF(name string, data []byte) error {
	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		return fmt.Errorf("creating upload directory: %w", err)
	}
	path := filepath.Join(h.uploadDir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("writing upload: %w", err)
	}
	return nil
}
