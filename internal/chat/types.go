// Package chat orchestrates conversations with the hosted language models.
//
// Every request is grounded before the model answers freely: when the latest
// message comes from the user, the retrieval tool is forced rather than left
// to model discretion (see policy.go). Conversations carrying a PDF
// attachment are routed to Anthropic; everything else goes to OpenAI.
// Token-level streaming semantics are the provider SDKs'; this package does
// not buffer or reinterpret the stream.
package chat

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Attachment is a file attached to a message. URL points at object storage;
// ContentType drives model selection (application/pdf switches providers).
type Attachment struct {
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
}

// Message is one turn of a conversation.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"experimental_attachments,omitempty"`
}

// Event types delivered to the stream handler.
const (
	EventChunk = "chunk" // partial response text
	EventDone  = "done"  // stream completed, Text holds the full response
	EventError = "error" // terminal failure
)

// Event is one unit of a streamed chat response.
type Event struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Handler receives stream events. Returning an error aborts the stream
// (typically: the client disconnected).
type Handler func(ctx context.Context, ev Event) error

// systemPrompt mirrors the assistant contract: answer from the knowledge
// base, let the retrieval tool handle the no-match case.
const systemPrompt = `You are a helpful assistant. Use the 'get_information' tool to fetch relevant information from the knowledge base for every user question. If no relevant information is found, the tool will handle the response.`
