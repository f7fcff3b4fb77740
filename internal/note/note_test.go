package note

import (
	"encoding/json"
	"reflect"
	"testing"
)

func doc(children ...Node) Node {
	return Node{Type: "doc", Content: children}
}

func paragraph(children ...Node) Node {
	return Node{Type: "paragraph", Content: children}
}

func text(s string) Node {
	return Node{Type: "text", Text: s}
}

func image(attrs map[string]any) Node {
	return Node{Type: "image", Attrs: attrs}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		tree Node
		want string
	}{
		{
			name: "empty document",
			tree: doc(),
			want: "",
		},
		{
			name: "single paragraph",
			tree: doc(paragraph(text("hello"), text("world"))),
			want: "hello world ",
		},
		{
			name: "document order across blocks",
			tree: doc(
				Node{Type: "heading", Attrs: map[string]any{"level": 1}, Content: []Node{text("Title")}},
				paragraph(text("first")),
				paragraph(text("second")),
			),
			want: "Title first second ",
		},
		{
			name: "empty text leaves skipped",
			tree: doc(paragraph(text(""), text("only"))),
			want: "only ",
		},
		{
			name: "images contribute no text",
			tree: doc(paragraph(image(map[string]any{"src": "https://x/y.png"}), text("caption"))),
			want: "caption ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.tree); got != tt.want {
				t.Errorf("ExtractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractImages(t *testing.T) {
	tree := doc(
		paragraph(text("before")),
		image(map[string]any{"src": "https://cdn/a.png", "alt": "diagram", "width": float64(640)}),
		paragraph(
			image(map[string]any{"src": "data:image/jpeg;base64,xxxx", "alt": "photo"}),
		),
		image(map[string]any{"alt": "missing src"}),
	)

	images := ExtractImages(tree)
	if len(images) != 2 {
		t.Fatalf("ExtractImages() returned %d images, want 2", len(images))
	}

	if images[0].Src != "https://cdn/a.png" || images[0].Alt != "diagram" {
		t.Errorf("first image = %+v", images[0])
	}
	if images[0].MimeType != "" {
		t.Errorf("regular URL should have no mime type, got %q", images[0].MimeType)
	}
	if w, ok := images[0].Width.(float64); !ok || w != 640 {
		t.Errorf("width = %v, want 640", images[0].Width)
	}

	if images[1].MimeType != "image/jpeg" {
		t.Errorf("data URI mime = %q, want image/jpeg", images[1].MimeType)
	}
}

func TestParseMeta_RoundTrip(t *testing.T) {
	original := Meta{
		Title:           "Test",
		WordCount:       42,
		HTMLContent:     "<p>hi</p>",
		MarkdownContent: "hi",
		JSONContent:     doc(paragraph(text("hi"))),
		Images:          []ImageMeta{{Src: "https://cdn/a.png", Alt: "a"}},
	}

	blob, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, ok := ParseMeta(string(blob), "res-1")
	if !ok {
		t.Error("ParseMeta should report a clean parse")
	}
	if !reflect.DeepEqual(got, original) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, original)
	}
}

func TestParseMeta_FallbackOnInvalidJSON(t *testing.T) {
	raw := "just some plain text, not JSON"
	meta, ok := ParseMeta(raw, "abcdef1234567890")

	if ok {
		t.Error("ParseMeta should report the fallback path")
	}
	if meta.Title != "Note abcdef12" {
		t.Errorf("fallback title = %q", meta.Title)
	}
	if meta.MarkdownContent != raw {
		t.Errorf("fallback markdown = %q, want raw text", meta.MarkdownContent)
	}
	if got := ExtractText(meta.JSONContent); got != raw+" " {
		t.Errorf("fallback tree text = %q", got)
	}
}

func TestFallbackMeta_EmptyContent(t *testing.T) {
	meta := FallbackMeta("", "short")

	if meta.Title != "Untitled Note" {
		t.Errorf("title = %q, want Untitled Note", meta.Title)
	}
	if got := ExtractText(meta.JSONContent); got != "Content could not be parsed " {
		t.Errorf("tree text = %q", got)
	}
}
