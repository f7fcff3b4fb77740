package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
)

func openAITools() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		{
			Function: openai.FunctionDefinitionParam{
				Name:        toolAddResource,
				Description: openai.String("add a resource to your knowledge base. If the user provides a random piece of knowledge unprompted, use this tool without asking for confirmation."),
				Parameters: openai.FunctionParameters{
					"type":       "object",
					"properties": addResourceSchema(),
					"required":   []string{"content"},
				},
			},
		},
		{
			Function: openai.FunctionDefinitionParam{
				Name:        toolGetInformation,
				Description: openai.String("get information from your knowledge base to answer questions."),
				Parameters: openai.FunctionParameters{
					"type":       "object",
					"properties": getInformationSchema(),
					"required":   []string{"question"},
				},
			},
		},
	}
}

func openAIToolChoice(policy ToolPolicy) openai.ChatCompletionToolChoiceOptionUnionParam {
	if policy == PolicyForceRetrieval {
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: toolGetInformation,
				},
			},
		}
	}
	return openai.ChatCompletionToolChoiceOptionUnionParam{
		OfAuto: openai.String("auto"),
	}
}

func openAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	out = append(out, openai.SystemMessage(systemPrompt))
	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			if imgs := imageAttachments(m.Attachments); len(imgs) > 0 {
				parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(imgs)+1)
				if m.Content != "" {
					parts = append(parts, openai.TextContentPart(m.Content))
				}
				for _, a := range imgs {
					parts = append(parts, openai.ImageContentPart(
						openai.ChatCompletionContentPartImageImageURLParam{URL: a.URL}))
				}
				out = append(out, openai.UserMessage(parts))
				continue
			}
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func imageAttachments(attachments []Attachment) []Attachment {
	var imgs []Attachment
	for _, a := range attachments {
		if strings.HasPrefix(strings.ToLower(a.ContentType), "image/") {
			imgs = append(imgs, a)
		}
	}
	return imgs
}

// streamOpenAI runs the agent loop: stream a completion, execute any tool
// calls the model accumulated, feed results back, repeat. Retrieval is
// forced on the first round only; later rounds let the model answer.
func (s *Service) streamOpenAI(ctx context.Context, messages []Message, policy ToolPolicy, handle Handler) error {
	params := openai.ChatCompletionNewParams{
		Model:      s.model,
		Messages:   openAIMessages(messages),
		Tools:      openAITools(),
		ToolChoice: openAIToolChoice(policy),
	}

	var full strings.Builder
	for round := 0; round < maxToolRounds; round++ {
		stream := s.openai.Chat.Completions.NewStreaming(ctx, params)
		acc := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				full.WriteString(delta)
				if err := handle(ctx, Event{Type: EventChunk, Text: delta}); err != nil {
					return err
				}
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("openai stream: %w", err)
		}
		if len(acc.Choices) == 0 {
			return fmt.Errorf("openai stream: empty completion")
		}

		msg := acc.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return handle(ctx, Event{Type: EventDone, Text: full.String()})
		}

		params.Messages = append(params.Messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			s.logger.Debug("executing tool",
				slog.String("tool", call.Function.Name),
				slog.String("call_id", call.ID))
			result, err := s.tools.Execute(ctx, call.Function.Name, []byte(call.Function.Arguments))
			if err != nil {
				return fmt.Errorf("tool %s: %w", call.Function.Name, err)
			}
			params.Messages = append(params.Messages, openai.ToolMessage(result, call.ID))
		}
		params.ToolChoice = openAIToolChoice(PolicyAuto)
	}

	return fmt.Errorf("openai stream: tool round limit reached")
}
