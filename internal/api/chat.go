package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/quillnotes/quill/internal/chat"
	"github.com/quillnotes/quill/internal/log"
)

const maxChatBody = 1 << 20 // 1 MiB

// chatHandler serves the SSE chat endpoint.
type chatHandler struct {
	service *chat.Service
	logger  log.Logger
}

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

// ChunkPayload is the SSE data payload for streaming text chunks.
type ChunkPayload struct {
	Text string `json:"text"`
}

// DonePayload is the SSE data payload when streaming completes.
type DonePayload struct {
	Response string `json:"response"`
}

// ErrorPayload is the SSE data payload when an error occurs.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// stream handles SSE streaming chat requests.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = writeEvent(w, flusher, chat.EventError, ErrorPayload{
			Code:    "INVALID_REQUEST",
			Message: "Invalid request body",
		})
		return
	}
	if len(req.Messages) == 0 {
		_ = writeEvent(w, flusher, chat.EventError, ErrorPayload{
			Code:    "MISSING_MESSAGES",
			Message: "messages are required",
		})
		return
	}

	ctx := r.Context()
	h.logger.Debug("chat stream started", slog.Int("messages", len(req.Messages)))

	err := h.service.Stream(ctx, req.Messages, func(_ context.Context, ev chat.Event) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		switch ev.Type {
		case chat.EventChunk:
			return writeEvent(w, flusher, chat.EventChunk, ChunkPayload{Text: ev.Text})
		case chat.EventDone:
			return writeEvent(w, flusher, chat.EventDone, DonePayload{Response: ev.Text})
		default:
			return nil
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected")
			return
		}
		h.handleStreamError(w, flusher, err)
		return
	}

	h.logger.Debug("chat stream completed")
}

// handleStreamError maps service errors to SSE error events. Provider
// failures surface as a generic assistant-facing error, not a hard close.
func (h *chatHandler) handleStreamError(w io.Writer, f http.Flusher, err error) {
	code := "STREAM_ERROR"
	message := "The assistant could not complete this response. Please try again."

	switch {
	case errors.Is(err, chat.ErrNoProvider):
		code = "MODEL_UNAVAILABLE"
		message = "No chat model is configured."
	case errors.Is(err, chat.ErrPDFUnsupported):
		code = "PDF_UNSUPPORTED"
		message = "PDF chat is not configured."
	case errors.Is(err, chat.ErrNoMessages):
		code = "MISSING_MESSAGES"
		message = "messages are required"
	}

	h.logger.Error("chat stream failed", slog.Any("error", err))
	_ = writeEvent(w, f, chat.EventError, ErrorPayload{Code: code, Message: message})
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
