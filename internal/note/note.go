// Package note defines the structured editor document model and the functions
// that derive searchable content from it.
//
// A note arrives from the editor as a tree of nodes (paragraphs, headings,
// text leaves, images). The tree is persisted verbatim inside the resource
// content blob; plain text and image metadata are derived from it at save
// time to feed the embedding pipeline.
package note

import (
	"strings"
)

// Node is one node of the structured editor document tree.
// Text leaves have Type "text" and a non-empty Text; container nodes carry
// children in Content. Attrs holds node-specific attributes (heading level,
// image src, and so on).
type Node struct {
	Type    string         `json:"type,omitempty"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
}

// ImageMeta describes an image embedded in a note.
type ImageMeta struct {
	Src      string `json:"src"`
	Alt      string `json:"alt,omitempty"`
	Width    any    `json:"width,omitempty"`
	Height   any    `json:"height,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// ExtractText concatenates every text leaf of the tree in document order.
// Each leaf contributes its text followed by a single space, matching the
// chunking expectations of the embedding pipeline.
func ExtractText(n Node) string {
	var sb strings.Builder
	extractText(n, &sb)
	return sb.String()
}

func extractText(n Node, sb *strings.Builder) {
	if n.Type == "text" && n.Text != "" {
		sb.WriteString(n.Text)
		sb.WriteByte(' ')
	}
	for _, child := range n.Content {
		extractText(child, sb)
	}
}

// ExtractImages collects every image node with a src attribute, in document
// order. The MIME type is derived from data: URIs when present.
func ExtractImages(n Node) []ImageMeta {
	var images []ImageMeta
	extractImages(n, &images)
	return images
}

func extractImages(n Node, images *[]ImageMeta) {
	if n.Type == "image" && n.Attrs != nil {
		if src, ok := n.Attrs["src"].(string); ok && src != "" {
			img := ImageMeta{Src: src}
			if alt, ok := n.Attrs["alt"].(string); ok {
				img.Alt = alt
			}
			if w, ok := n.Attrs["width"]; ok {
				img.Width = w
			}
			if h, ok := n.Attrs["height"]; ok {
				img.Height = h
			}
			img.MimeType = mimeFromDataURI(src)
			*images = append(*images, img)
		}
	}
	for _, child := range n.Content {
		extractImages(child, images)
	}
}

// mimeFromDataURI extracts the MIME type from a data: URI.
// Returns "" for regular URLs.
func mimeFromDataURI(src string) string {
	if !strings.HasPrefix(src, "data:") {
		return ""
	}
	rest := strings.TrimPrefix(src, "data:")
	if i := strings.IndexByte(rest, ';'); i >= 0 {
		return rest[:i]
	}
	if i := strings.IndexByte(rest, ','); i >= 0 {
		return rest[:i]
	}
	return rest
}
