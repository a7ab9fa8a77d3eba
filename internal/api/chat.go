package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fanlore/fanlore/internal/access"
	"github.com/fanlore/fanlore/internal/rag"
)

// maxChatBodyBytes bounds the chat request body.
const maxChatBodyBytes = 1 << 20

// userIDHeader carries the fan's identity. Verification of the value is the
// upstream auth proxy's job.
const userIDHeader = "X-User-Id"

// AccessChecker decides whether a fan may ask a creator a question.
type AccessChecker interface {
	Check(ctx context.Context, fanID, creatorID string) (access.Decision, error)
}

// Answerer runs the retrieval and generation pipeline for one question.
type Answerer interface {
	Answer(ctx context.Context, question, creatorID string) (rag.Answer, error)
}

type chatHandler struct {
	gate     AccessChecker
	answerer Answerer
	logger   *slog.Logger
}

type chatRequest struct {
	Question  string `json:"question"`
	CreatorID string `json:"creatorId"`
}

// send handles POST /api/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Question == "" || req.CreatorID == "" {
		writeError(w, http.StatusBadRequest, "Question and creatorId are required")
		return
	}

	fanID := r.Header.Get(userIDHeader)
	if fanID == "" {
		writeError(w, http.StatusBadRequest, "Missing x-user-id header")
		return
	}

	decision, err := h.gate.Check(r.Context(), fanID, req.CreatorID)
	if err != nil {
		h.logger.Error("access check failed",
			"error", err,
			"fan_id", fanID,
			"creator_id", req.CreatorID,
		)
		writeError(w, http.StatusInternalServerError, "Access check failed")
		return
	}
	if !decision.Allowed {
		writeError(w, http.StatusPaymentRequired, "Payment required")
		return
	}

	answer, err := h.answerer.Answer(r.Context(), req.Question, req.CreatorID)
	if err != nil {
		h.logger.Error("chat pipeline failed",
			"error", err,
			"creator_id", req.CreatorID,
		)
		writeError(w, http.StatusInternalServerError, "Chat processing failed")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// public handles GET /api/chat/{creatorId}. No auth; the hosted chat page
// bootstraps from it.
func (h *chatHandler) public(w http.ResponseWriter, r *http.Request) {
	creatorID := r.PathValue("creatorId")
	if creatorID == "" {
		writeError(w, http.StatusBadRequest, "Creator ID is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Public chat page for creator %s", creatorID),
	})
}
