package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quillnotes/quill/internal/search"
)

// Tool names exposed to the models.
const (
	toolAddResource    = "add_resource"
	toolGetInformation = "get_information"
)

const noMatchMessage = "Sorry, I don't know. No relevant information was found in the knowledge base."

// ResourceCreator stores free-form text in the knowledge base. Satisfied by
// resource.Store.
type ResourceCreator interface {
	CreateFromText(ctx context.Context, content string) (string, error)
}

// Retriever finds stored content relevant to a question. Satisfied by
// search.Retriever.
type Retriever interface {
	FindRelevant(ctx context.Context, question string) ([]search.Result, error)
}

// Toolset executes the tools the chat models can call.
type Toolset struct {
	Resources ResourceCreator
	Search    Retriever
}

type addResourceArgs struct {
	Content string `json:"content"`
}

type getInformationArgs struct {
	Question string `json:"question"`
}

// Execute runs the named tool with JSON-encoded arguments and returns the
// result as a string for the model to consume.
func (t Toolset) Execute(ctx context.Context, name string, args []byte) (string, error) {
	switch name {
	case toolAddResource:
		var in addResourceArgs
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("parse %s arguments: %w", name, err)
		}
		id, err := t.Resources.CreateFromText(ctx, in.Content)
		if err != nil {
			return "", fmt.Errorf("add resource: %w", err)
		}
		return fmt.Sprintf("Resource %s added to the knowledge base.", id), nil

	case toolGetInformation:
		var in getInformationArgs
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("parse %s arguments: %w", name, err)
		}
		results, err := t.Search.FindRelevant(ctx, in.Question)
		if err != nil {
			return "", fmt.Errorf("get information: %w", err)
		}
		if len(results) == 0 {
			return noMatchMessage, nil
		}
		out, err := json.Marshal(results)
		if err != nil {
			return "", fmt.Errorf("encode results: %w", err)
		}
		return string(out), nil

	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

// Schemas shared by both provider bindings.

func addResourceSchema() map[string]any {
	return map[string]any{
		"content": map[string]any{
			"type":        "string",
			"description": "the content or resource to add to the knowledge base",
		},
	}
}

func getInformationSchema() map[string]any {
	return map[string]any{
		"question": map[string]any{
			"type":        "string",
			"description": "the user's question",
		},
	}
}
