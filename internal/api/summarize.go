package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quillnotes/quill/internal/log"
	"github.com/quillnotes/quill/internal/summarize"
)

// summarizeHandler serves AI title/summary generation.
type summarizeHandler struct {
	service *summarize.Service
	logger  log.Logger
}

type summarizeRequest struct {
	Content   string `json:"content"`
	MaxLength int    `json:"maxLength,omitempty"`
}

func (h *summarizeHandler) summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxNoteBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	result, err := h.service.Summarize(r.Context(), req.Content, req.MaxLength)
	if err != nil {
		if errors.Is(err, summarize.ErrContentTooShort) {
			writeError(w, http.StatusBadRequest, "content_too_short", "Content is too short to summarize")
			return
		}
		h.logger.Error("summarizing content", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "summarize_failed", "failed to generate title")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
