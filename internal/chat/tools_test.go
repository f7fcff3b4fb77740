package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/quillnotes/quill/internal/log"
	"github.com/quillnotes/quill/internal/search"
)

type fakeCreator struct {
	content string
	err     error
}

func (f *fakeCreator) CreateFromText(_ context.Context, content string) (string, error) {
	f.content = content
	return "res-123", f.err
}

type fakeRetriever struct {
	question string
	results  []search.Result
	err      error
}

func (f *fakeRetriever) FindRelevant(_ context.Context, question string) ([]search.Result, error) {
	f.question = question
	return f.results, f.err
}

func TestToolset_AddResource(t *testing.T) {
	creator := &fakeCreator{}
	ts := Toolset{Resources: creator, Search: &fakeRetriever{}}

	out, err := ts.Execute(context.Background(), toolAddResource,
		[]byte(`{"content":"the sky is blue"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if creator.content != "the sky is blue" {
		t.Errorf("stored content = %q", creator.content)
	}
	if !strings.Contains(out, "res-123") {
		t.Errorf("result should name the new resource, got %q", out)
	}
}

func TestToolset_GetInformation(t *testing.T) {
	retriever := &fakeRetriever{results: []search.Result{
		{Content: "quill is a note app", Similarity: 0.92},
	}}
	ts := Toolset{Resources: &fakeCreator{}, Search: retriever}

	out, err := ts.Execute(context.Background(), toolGetInformation,
		[]byte(`{"question":"what is quill?"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if retriever.question != "what is quill?" {
		t.Errorf("question = %q", retriever.question)
	}

	var decoded []search.Result
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Content != "quill is a note app" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestToolset_GetInformation_NoMatches(t *testing.T) {
	ts := Toolset{Resources: &fakeCreator{}, Search: &fakeRetriever{}}

	out, err := ts.Execute(context.Background(), toolGetInformation,
		[]byte(`{"question":"unknown topic"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != noMatchMessage {
		t.Errorf("empty search = %q, want the no-match message", out)
	}
}

func TestToolset_Errors(t *testing.T) {
	retrErr := errors.New("search broke")
	ts := Toolset{
		Resources: &fakeCreator{err: errors.New("db down")},
		Search:    &fakeRetriever{err: retrErr},
	}

	if _, err := ts.Execute(context.Background(), toolAddResource, []byte(`{"content":"x"}`)); err == nil {
		t.Error("add_resource should propagate store errors")
	}
	if _, err := ts.Execute(context.Background(), toolGetInformation, []byte(`{"question":"x"}`)); !errors.Is(err, retrErr) {
		t.Errorf("get_information error = %v, want wrapped %v", err, retrErr)
	}
	if _, err := ts.Execute(context.Background(), "no_such_tool", []byte(`{}`)); err == nil {
		t.Error("unknown tool should be an error")
	}
	if _, err := ts.Execute(context.Background(), toolAddResource, []byte(`{bad`)); err == nil {
		t.Error("malformed arguments should be an error")
	}
}

func TestNew_MaxTokens(t *testing.T) {
	s := New("", "", "gpt-4o", "claude-3-5-sonnet-latest", 0, Toolset{}, log.NewNop())
	if s.maxTokens != defaultMaxTokens {
		t.Errorf("maxTokens = %d, want default %d", s.maxTokens, defaultMaxTokens)
	}

	s = New("", "", "gpt-4o", "claude-3-5-sonnet-latest", 2048, Toolset{}, log.NewNop())
	if s.maxTokens != 2048 {
		t.Errorf("maxTokens = %d, want 2048", s.maxTokens)
	}
}

func TestStream_NoMessages(t *testing.T) {
	s := New("", "", "gpt-4o", "claude-3-5-sonnet-latest", 0, Toolset{}, log.NewNop())

	err := s.Stream(context.Background(), nil, func(context.Context, Event) error { return nil })
	if !errors.Is(err, ErrNoMessages) {
		t.Errorf("Stream() error = %v, want ErrNoMessages", err)
	}
}

func TestStream_ProviderUnavailable(t *testing.T) {
	s := New("", "", "gpt-4o", "claude-3-5-sonnet-latest", 0, Toolset{}, log.NewNop())

	err := s.Stream(context.Background(),
		[]Message{{Role: RoleUser, Content: "hi"}},
		func(context.Context, Event) error { return nil })
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("Stream() error = %v, want ErrNoProvider", err)
	}

	err = s.Stream(context.Background(),
		[]Message{{Role: RoleUser, Content: "summarize", Attachments: []Attachment{
			{ContentType: "application/pdf", URL: "https://x/a.pdf"},
		}}},
		func(context.Context, Event) error { return nil })
	if !errors.Is(err, ErrPDFUnsupported) {
		t.Errorf("Stream() with PDF error = %v, want ErrPDFUnsupported", err)
	}
}
