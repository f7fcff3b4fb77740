package note

import (
	"encoding/json"
	"fmt"
)

// Meta is the persisted content blob of a note: the structured tree plus the
// derived renderings. This is the de facto on-disk format and must round-trip
// losslessly through save/load.
type Meta struct {
	Title           string      `json:"title,omitempty"`
	WordCount       int         `json:"wordCount,omitempty"`
	HTMLContent     string      `json:"htmlContent,omitempty"`
	MarkdownContent string      `json:"markdownContent,omitempty"`
	JSONContent     Node        `json:"jsonContent"`
	Images          []ImageMeta `json:"images,omitempty"`
}

// ParseMeta decodes a stored content blob. If the blob is not valid JSON the
// raw text is preserved as a single-paragraph fallback document rather than
// failing the read; the caller can always reconstruct an editor view. The
// second return reports whether the blob parsed cleanly.
func ParseMeta(raw, resourceID string) (Meta, bool) {
	var meta Meta
	if err := json.Unmarshal([]byte(raw), &meta); err == nil {
		return meta, true
	}
	return FallbackMeta(raw, resourceID), false
}

// FallbackMeta builds a best-effort view of unparsable content. The raw text
// becomes the markdown rendering and the body of a one-paragraph tree.
func FallbackMeta(raw, resourceID string) Meta {
	text := raw
	if text == "" {
		text = "Content could not be parsed"
	}
	title := "Untitled Note"
	if len(resourceID) >= 8 {
		title = fmt.Sprintf("Note %s", resourceID[:8])
	}
	return Meta{
		Title:           title,
		MarkdownContent: raw,
		JSONContent: Node{
			Type: "doc",
			Content: []Node{
				{
					Type: "paragraph",
					Content: []Node{
						{Type: "text", Text: text},
					},
				},
			},
		},
	}
}
