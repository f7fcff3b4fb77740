package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/quillnotes/quill/internal/log"
	"github.com/quillnotes/quill/internal/note"
	"github.com/quillnotes/quill/internal/resource"
)

const maxNoteBody = 4 << 20 // 4 MiB editor payload

// notesHandler serves note persistence endpoints.
type notesHandler struct {
	store    *resource.Store
	throttle *titleThrottle
	pageSize int32
	logger   log.Logger
}

// saveRequest is the editor autosave payload.
type saveRequest struct {
	ResourceID string     `json:"resourceId,omitempty"`
	Title      string     `json:"title"`
	WordCount  int        `json:"wordCount"`
	HTML       string     `json:"htmlContent"`
	Markdown   string     `json:"markdownContent"`
	Content    *note.Node `json:"content"`
}

func (h *notesHandler) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxNoteBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Content == nil {
		writeError(w, http.StatusBadRequest, "missing_content", "content document tree is required")
		return
	}

	id, err := h.store.Save(r.Context(), resource.SaveInput{
		Tree:       *req.Content,
		HTML:       req.HTML,
		Markdown:   req.Markdown,
		WordCount:  req.WordCount,
		Title:      req.Title,
		ResourceID: req.ResourceID,
	})
	if err != nil {
		h.logger.Error("saving note", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "save_failed", "failed to save note")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"resourceId": id})
}

func (h *notesHandler) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	n, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		h.logger.Error("loading note", slog.String("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "load_failed", "failed to load note")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"content":  n.Content,
		"metadata": n.Meta,
	})
}

func (h *notesHandler) list(w http.ResponseWriter, r *http.Request) {
	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "pageSize", h.pageSize)

	notes, err := h.store.List(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("listing notes", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list notes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notes":    notes,
		"page":     page,
		"pageSize": pageSize,
	})
}

func (h *notesHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		h.logger.Error("deleting note", slog.String("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete note")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type titleRequest struct {
	Title string `json:"title"`
}

// updateTitle rewrites a note's stored title. Requests inside the per-note
// throttle window are acknowledged without a write.
func (h *notesHandler) updateTitle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "missing_title", "title is required")
		return
	}

	if !h.throttle.allow(id) {
		writeJSON(w, http.StatusOK, map[string]bool{"throttled": true})
		return
	}

	changed, err := h.store.UpdateTitle(r.Context(), id, req.Title)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		h.logger.Error("updating title", slog.String("id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "title_update_failed", "failed to update title")
		return
	}
	if !changed {
		writeJSON(w, http.StatusOK, map[string]bool{"unchanged": true})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updated": true, "title": req.Title})
}

func queryInt32(r *http.Request, key string, fallback int32) int32 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 1 {
		return fallback
	}
	return int32(v)
}
