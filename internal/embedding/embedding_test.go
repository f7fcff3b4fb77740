package embedding

import (
	"context"
	"reflect"
	"testing"

	"github.com/quillnotes/quill/internal/log"
)

func TestChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
		{
			name: "single sentence",
			text: "hello world",
			want: []string{"hello world"},
		},
		{
			name: "multiple sentences",
			text: "first. second. third.",
			want: []string{"first", "second", "third"},
		},
		{
			name: "whitespace trimmed",
			text: "  a .  b  . ",
			want: []string{"a", "b"},
		},
		{
			name: "consecutive periods collapse",
			text: "one...two",
			want: []string{"one", "two"},
		},
		{
			name: "abbreviations split naively",
			text: "Dr. Smith arrived.",
			want: []string{"Dr", "Smith arrived"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunks(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Chunks(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestZeroVector(t *testing.T) {
	v := ZeroVector()
	if len(v) != Dimension {
		t.Fatalf("len(ZeroVector()) = %d, want %d", len(v), Dimension)
	}
	for i, x := range v {
		if x != 0 {
			t.Fatalf("ZeroVector()[%d] = %v, want 0", i, x)
		}
	}
}

func TestOpenAI_NoCredentialFallsBackToZeroVectors(t *testing.T) {
	gen := NewOpenAI("", "text-embedding-ada-002", log.NewNop())

	vec, err := gen.Embed(context.Background(), "some note content")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if !reflect.DeepEqual(vec, ZeroVector()) {
		t.Errorf("Embed() without credential should return the zero vector")
	}

	chunks, err := gen.EmbedChunks(context.Background(), "first. second.")
	if err != nil {
		t.Fatalf("EmbedChunks() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("EmbedChunks() returned %d chunks, want 2", len(chunks))
	}
	for _, c := range chunks {
		if len(c.Vector) != Dimension {
			t.Errorf("chunk %q vector length = %d, want %d", c.Content, len(c.Vector), Dimension)
		}
	}
	if chunks[0].Content != "first" || chunks[1].Content != "second" {
		t.Errorf("chunk contents = %q, %q", chunks[0].Content, chunks[1].Content)
	}
}

func TestOpenAI_EmptyTextStillEmbeds(t *testing.T) {
	gen := NewOpenAI("", "text-embedding-ada-002", log.NewNop())

	chunks, err := gen.EmbedChunks(context.Background(), "")
	if err != nil {
		t.Fatalf("EmbedChunks() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("EmbedChunks(\"\") = %d chunks, want 0", len(chunks))
	}
}
