package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quillnotes/quill/internal/blob"
	"github.com/quillnotes/quill/internal/imagegen"
	"github.com/quillnotes/quill/internal/log"
)

const imageGenDailyLimit = 20

// uploadsHandler serves file uploads and image generation/import.
type uploadsHandler struct {
	store      *blob.Store
	generator  *imagegen.Generator
	imageQuota *dailyLimiter
	trustProxy bool
	logger     log.Logger
}

// upload stores a raw request body. The filename travels in the
// x-filename header; content type in the standard header.
func (h *uploadsHandler) upload(w http.ResponseWriter, r *http.Request) {
	if !h.store.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "storage_disabled", "object storage is not configured")
		return
	}

	filename := r.Header.Get("x-filename")
	if filename == "" {
		filename = "upload"
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj, err := h.store.Upload(r.Context(), filename, contentType, r.Body)
	if err != nil {
		h.logger.Error("uploading file", slog.String("filename", filename), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "upload_failed", "failed to store file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": obj.URL})
}

type generateImageRequest struct {
	Prompt string `json:"prompt"`
}

// generateImage renders an image from a prompt, bounded by a per-IP
// daily quota.
func (h *uploadsHandler) generateImage(w http.ResponseWriter, r *http.Request) {
	if !h.generator.Enabled() {
		writeError(w, http.StatusBadRequest, "missing_api_key", "Missing OPENAI_API_KEY - make sure to add it to your .env file.")
		return
	}

	ip := clientIP(r, h.trustProxy)
	allowed, remaining, resetAt := h.imageQuota.take(ip)
	setRateLimitHeaders(w, imageGenDailyLimit, remaining, resetAt)
	if !allowed {
		writeError(w, http.StatusTooManyRequests, "quota_exhausted", "You have reached your image generation request limit for the day.")
		return
	}

	var req generateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "invalid_prompt", "Missing or invalid prompt")
		return
	}

	url, err := h.generator.Generate(r.Context(), req.Prompt)
	if err != nil {
		h.logger.Error("generating image", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "generation_failed", "Failed to generate image")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type importImageRequest struct {
	ImageURL string `json:"imageUrl"`
}

// importImage re-hosts an external image (typically a short-lived
// provider URL from generateImage) in object storage.
func (h *uploadsHandler) importImage(w http.ResponseWriter, r *http.Request) {
	var req importImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "imageUrl is required")
		return
	}

	obj, err := h.store.SaveFromURL(r.Context(), req.ImageURL)
	if err != nil {
		if errors.Is(err, blob.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, "storage_disabled", "object storage is not configured")
			return
		}
		h.logger.Error("importing image", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "import_failed", "failed to import image")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"url":         obj.URL,
		"originalUrl": req.ImageURL,
	})
}
