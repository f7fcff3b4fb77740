// Package app provides application initialization and dependency wiring.
//
// App is the container that owns every long-lived component: the database
// pool, the note store, retrieval, and the model-backed services. Setup
// builds it in dependency order with cleanup-on-error; Close releases
// everything in reverse.
package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillnotes/quill/internal/blob"
	"github.com/quillnotes/quill/internal/chat"
	"github.com/quillnotes/quill/internal/config"
	"github.com/quillnotes/quill/internal/embedding"
	"github.com/quillnotes/quill/internal/imagegen"
	"github.com/quillnotes/quill/internal/log"
	"github.com/quillnotes/quill/internal/resource"
	"github.com/quillnotes/quill/internal/search"
	"github.com/quillnotes/quill/internal/summarize"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	DBPool    *pgxpool.Pool
	Embedder  embedding.Generator
	Notes     *resource.Store
	Retriever *search.Retriever
	Chat      *chat.Service
	Summarize *summarize.Service
	Blobs     *blob.Store
	Images    *imagegen.Generator

	otelCleanup func()
	dbCleanup   func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	logger := a.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	logger.Info("shutting down application")

	if a.dbCleanup != nil {
		a.dbCleanup()
		logger.Info("database pool closed")
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
