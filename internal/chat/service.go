package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/quillnotes/quill/internal/log"
)

// Sentinel errors for provider availability.
var (
	ErrNoProvider     = errors.New("chat: no model provider configured")
	ErrPDFUnsupported = errors.New("chat: PDF attachments require an Anthropic API key")
	ErrNoMessages     = errors.New("chat: conversation has no messages")
)

// maxToolRounds bounds the agent loop so a model that keeps requesting
// tools cannot spin forever.
const maxToolRounds = 4

// defaultMaxTokens caps the response length when the caller does not
// configure one.
const defaultMaxTokens = 4096

// Service streams grounded chat completions, executing knowledge-base
// tools between model turns.
type Service struct {
	openai    *openai.Client
	anthropic *anthropic.Client
	model     string
	pdfModel  string
	maxTokens int
	tools     Toolset
	logger    log.Logger
}

// New builds a Service. An empty API key leaves the corresponding provider
// disabled; Stream reports ErrNoProvider or ErrPDFUnsupported when a
// request needs it. A maxTokens of zero or less falls back to
// defaultMaxTokens.
func New(openAIKey, anthropicKey, model, pdfModel string, maxTokens int, tools Toolset, logger log.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	s := &Service{
		model:     model,
		pdfModel:  pdfModel,
		maxTokens: maxTokens,
		tools:     tools,
		logger:    logger,
	}
	if openAIKey != "" {
		c := openai.NewClient(option.WithAPIKey(openAIKey))
		s.openai = &c
	}
	if anthropicKey != "" {
		c := anthropic.NewClient(anthropicoption.WithAPIKey(anthropicKey))
		s.anthropic = &c
	}
	return s
}

// Stream runs the conversation against the selected provider and delivers
// events to handle as they arrive. The final event is EventDone carrying
// the complete response text. Provider and tool failures are returned as
// errors; the caller decides how to surface them.
func (s *Service) Stream(ctx context.Context, messages []Message, handle Handler) error {
	if len(messages) == 0 {
		return ErrNoMessages
	}

	policy := DecidePolicy(messages)

	if HasPDF(messages) {
		if s.anthropic == nil {
			return ErrPDFUnsupported
		}
		s.logger.Debug("routing chat to anthropic",
			slog.String("model", s.pdfModel),
			slog.String("policy", policy.String()))
		return s.streamAnthropic(ctx, messages, policy, handle)
	}

	if s.openai == nil {
		return ErrNoProvider
	}
	s.logger.Debug("routing chat to openai",
		slog.String("model", s.model),
		slog.String("policy", policy.String()))
	return s.streamOpenAI(ctx, messages, policy, handle)
}
