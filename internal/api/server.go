// Package api is the JSON HTTP surface: note persistence, SSE chat,
// summarization, uploads, and image generation.
package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillnotes/quill/internal/blob"
	"github.com/quillnotes/quill/internal/chat"
	"github.com/quillnotes/quill/internal/imagegen"
	"github.com/quillnotes/quill/internal/log"
	"github.com/quillnotes/quill/internal/resource"
	"github.com/quillnotes/quill/internal/summarize"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger    log.Logger
	Notes     *resource.Store     // Required
	Chat      *chat.Service       // Required
	Summarize *summarize.Service  // Required
	Blobs     *blob.Store         // Required (may be disabled)
	Images    *imagegen.Generator // Required (may be disabled)
	Pool      *pgxpool.Pool       // Optional: nil fails /ready

	CORSOrigins []string // Allowed origins for CORS
	PageSize    int32    // Default notes page size (0 = 20)
	IsDev       bool     // Disables HSTS
	TrustProxy  bool     // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst   int      // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Notes == nil {
		return nil, errors.New("note store is required")
	}
	if cfg.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.Summarize == nil {
		return nil, errors.New("summarize service is required")
	}
	if cfg.Blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if cfg.Images == nil {
		return nil, errors.New("image generator is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	nh := &notesHandler{
		store:    cfg.Notes,
		throttle: newTitleThrottle(titleThrottleInterval),
		pageSize: pageSize,
		logger:   logger,
	}
	ch := &chatHandler{service: cfg.Chat, logger: logger}
	sh := &summarizeHandler{service: cfg.Summarize, logger: logger}
	uh := &uploadsHandler{
		store:      cfg.Blobs,
		generator:  cfg.Images,
		imageQuota: newDailyLimiter(imageGenDailyLimit),
		trustProxy: cfg.TrustProxy,
		logger:     logger,
	}

	mux := http.NewServeMux()

	// Notes
	mux.HandleFunc("POST /api/v1/notes", nh.save)
	mux.HandleFunc("GET /api/v1/notes", nh.list)
	mux.HandleFunc("GET /api/v1/notes/{id}", nh.get)
	mux.HandleFunc("DELETE /api/v1/notes/{id}", nh.delete)
	mux.HandleFunc("POST /api/v1/notes/{id}/title", nh.updateTitle)

	// Chat (SSE)
	mux.HandleFunc("POST /api/v1/chat", ch.stream)

	// Summarization
	mux.HandleFunc("POST /api/v1/summarize", sh.summarize)

	// Uploads and images
	mux.HandleFunc("POST /api/v1/uploads", uh.upload)
	mux.HandleFunc("POST /api/v1/images/generations", uh.generateImage)
	mux.HandleFunc("POST /api/v1/images/import", uh.importImage)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes outside the middleware stack.
	hh := &healthHandler{pool: cfg.Pool, logger: logger}
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", hh.liveness)
	topMux.HandleFunc("GET /ready", hh.readiness)
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
