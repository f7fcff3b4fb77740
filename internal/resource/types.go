// Package resource persists notes and their embeddings in PostgreSQL.
//
// A resource row holds the serialized note content blob; embedding rows hold
// the derived vectors that make the note searchable. Deleting a resource
// cascades to its embeddings (enforced by the schema).
package resource

import (
	"errors"
	"time"

	"github.com/quillnotes/quill/internal/note"
)

// ErrNotFound indicates the requested resource does not exist.
var ErrNotFound = errors.New("resource not found")

// SaveInput is the editor payload accepted by Store.Save.
type SaveInput struct {
	Tree       note.Node // structured document tree (required)
	HTML       string    // derived HTML rendering
	Markdown   string    // derived Markdown rendering
	WordCount  int
	Title      string
	ResourceID string // empty = create a new resource
}

// Note is the parsed view of a stored resource returned by Get.
type Note struct {
	ID        string
	Content   string // extracted plain text, or the raw blob when it cannot be parsed
	Meta      note.Meta
	UpdatedAt time.Time
}

// Summary is one entry of a paginated note listing.
type Summary struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	WordCount       int            `json:"wordCount"`
	HTMLContent     string         `json:"htmlContent"`
	MarkdownContent string         `json:"markdownContent"`
	JSONContent     note.Node      `json:"jsonContent"`
	Images          []note.ImageMeta `json:"images"`
}
