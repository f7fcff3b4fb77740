// Package imagegen generates images with DALL-E 3.
package imagegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/quillnotes/quill/internal/log"
)

// ErrDisabled is returned when no OpenAI API key is configured.
var ErrDisabled = errors.New("imagegen: openai api key not configured")

// Generator produces images from text prompts.
type Generator struct {
	client *openai.Client
	logger log.Logger
}

// NewGenerator builds a Generator. An empty apiKey returns a disabled
// generator whose Generate reports ErrDisabled.
func NewGenerator(apiKey string, logger log.Logger) *Generator {
	g := &Generator{logger: logger}
	if apiKey != "" {
		c := openai.NewClient(option.WithAPIKey(apiKey))
		g.client = &c
	}
	return g
}

// Enabled reports whether an API key is configured.
func (g *Generator) Enabled() bool { return g.client != nil }

// Generate renders prompt as a 1024x1024 image and returns the provider's
// image URL. The URL expires after a short time; callers that need to keep
// the image should re-host it (see blob.Store.SaveFromURL).
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", ErrDisabled
	}

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:  openai.ImageModelDallE3,
		Prompt: prompt,
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize1024x1024,
	})
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("generate image: empty response")
	}
	return resp.Data[0].URL, nil
}
