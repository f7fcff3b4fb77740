package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

func anthropicTools() []anthropic.ToolUnionParam {
	return []anthropic.ToolUnionParam{
		{
			OfTool: &anthropic.ToolParam{
				Name:        toolAddResource,
				Description: anthropic.String("add a resource to your knowledge base. If the user provides a random piece of knowledge unprompted, use this tool without asking for confirmation."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: addResourceSchema(),
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        toolGetInformation,
				Description: anthropic.String("get information from your knowledge base to answer questions."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: getInformationSchema(),
				},
			},
		},
	}
}

func anthropicToolChoice(policy ToolPolicy) anthropic.ToolChoiceUnionParam {
	if policy == PolicyForceRetrieval {
		return anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: toolGetInformation},
		}
	}
	return anthropic.ToolChoiceUnionParam{
		OfAuto: &anthropic.ToolChoiceAutoParam{},
	}
}

// anthropicMessages converts the conversation. PDF and image attachments
// become document and image blocks on their user message; system messages
// fold into the request-level system prompt.
func anthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case RoleSystem:
			// Folded into MessageNewParams.System by the caller.
			continue
		default:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Attachments)+1)
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, a := range m.Attachments {
				switch {
				case strings.EqualFold(a.ContentType, "application/pdf"):
					blocks = append(blocks, anthropic.NewDocumentBlock(
						anthropic.URLPDFSourceParam{URL: a.URL}))
				case strings.HasPrefix(strings.ToLower(a.ContentType), "image/"):
					blocks = append(blocks, anthropic.NewImageBlock(
						anthropic.URLImageSourceParam{URL: a.URL}))
				}
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func (s *Service) streamAnthropic(ctx context.Context, messages []Message, policy ToolPolicy, handle Handler) error {
	system := systemPrompt
	for _, m := range messages {
		if m.Role == RoleSystem && m.Content != "" {
			system = m.Content
		}
	}

	params := anthropic.MessageNewParams{
		Model:      anthropic.Model(s.pdfModel),
		MaxTokens:  int64(s.maxTokens),
		System:     []anthropic.TextBlockParam{{Text: system}},
		Messages:   anthropicMessages(messages),
		Tools:      anthropicTools(),
		ToolChoice: anthropicToolChoice(policy),
	}

	var full strings.Builder
	for round := 0; round < maxToolRounds; round++ {
		stream := s.anthropic.Messages.NewStreaming(ctx, params)
		var message anthropic.Message
		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				return fmt.Errorf("anthropic stream: %w", err)
			}
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					full.WriteString(delta.Text)
					if err := handle(ctx, Event{Type: EventChunk, Text: delta.Text}); err != nil {
						return err
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("anthropic stream: %w", err)
		}

		if message.StopReason != anthropic.StopReasonToolUse {
			return handle(ctx, Event{Type: EventDone, Text: full.String()})
		}

		results := make([]anthropic.ContentBlockParamUnion, 0, 1)
		for _, block := range message.Content {
			use, ok := block.AsAny().(anthropic.ToolUseBlock)
			if !ok {
				continue
			}
			s.logger.Debug("executing tool",
				slog.String("tool", use.Name),
				slog.String("call_id", use.ID))
			args, err := json.Marshal(use.Input)
			if err != nil {
				return fmt.Errorf("tool %s: encode input: %w", use.Name, err)
			}
			result, err := s.tools.Execute(ctx, use.Name, args)
			if err != nil {
				return fmt.Errorf("tool %s: %w", use.Name, err)
			}
			results = append(results, anthropic.NewToolResultBlock(use.ID, result, false))
		}
		if len(results) == 0 {
			return fmt.Errorf("anthropic stream: tool_use stop without tool blocks")
		}

		params.Messages = append(params.Messages, message.ToParam(), anthropic.NewUserMessage(results...))
		params.ToolChoice = anthropicToolChoice(PolicyAuto)
	}

	return fmt.Errorf("anthropic stream: tool round limit reached")
}
