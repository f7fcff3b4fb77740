// Package summarize generates note titles and short summaries.
//
// Results are cached for a few minutes keyed by a cheap content
// fingerprint, so repeated requests for the same note do not burn API
// calls. When OpenAI is unavailable or misbehaves the package degrades to
// a heuristic title built from the note's opening words.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/quillnotes/quill/internal/log"
)

const (
	// MinContentLength is the shortest content worth summarizing.
	MinContentLength = 200

	// DefaultMaxTitleLength caps the generated title when the caller
	// does not specify one.
	DefaultMaxTitleLength = 50

	sampleLength      = 1500
	fingerprintLength = 100
)

// ErrContentTooShort is returned for content under MinContentLength.
var ErrContentTooShort = fmt.Errorf("summarize: content shorter than %d characters", MinContentLength)

// Result is a generated title and summary. Cached reports whether it was
// served from the cache rather than a fresh model call.
type Result struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Cached  bool   `json:"cached,omitempty"`
}

// Cache stores recent results. Satisfied by *TTLCache; injected so tests
// can observe hits without waiting on wall-clock expiry.
type Cache interface {
	Get(key string) (Result, bool)
	Set(key string, r Result)
}

// Service generates titles and summaries with gpt-3.5-turbo.
type Service struct {
	client *openai.Client // nil when no API key is configured
	model  string
	cache  Cache
	logger log.Logger
}

// NewService builds a Service. An empty apiKey leaves the client nil and
// every request falls back to heuristic titles.
func NewService(apiKey, model string, cache Cache, logger log.Logger) *Service {
	s := &Service{model: model, cache: cache, logger: logger}
	if apiKey != "" {
		c := openai.NewClient(option.WithAPIKey(apiKey))
		s.client = &c
	}
	return s
}

// Summarize returns a title and summary for content. maxTitleLength <= 0
// uses DefaultMaxTitleLength.
func (s *Service) Summarize(ctx context.Context, content string, maxTitleLength int) (Result, error) {
	if len(content) < MinContentLength {
		return Result{}, ErrContentTooShort
	}
	if maxTitleLength <= 0 {
		maxTitleLength = DefaultMaxTitleLength
	}

	key := fingerprint(content)
	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug("serving cached summary")
		cached.Cached = true
		return cached, nil
	}

	if s.client == nil {
		s.logger.Warn("openai api key not configured, using fallback title")
		r := Fallback(content)
		s.cache.Set(key, r)
		return r, nil
	}

	r, err := s.generate(ctx, content, maxTitleLength)
	if err != nil {
		s.logger.Warn("summary generation failed, using fallback title", slog.Any("error", err))
		return Fallback(content), nil
	}
	s.cache.Set(key, r)
	return r, nil
}

func (s *Service) generate(ctx context.Context, content string, maxTitleLength int) (Result, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a helpful assistant that generates concise titles and summaries."),
			openai.UserMessage(prompt(content, maxTitleLength)),
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(200),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("summarize: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("summarize: empty completion")
	}

	var r Result
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &r); err != nil {
		return Result{}, fmt.Errorf("summarize: parse completion: %w", err)
	}
	if r.Title == "" {
		r.Title = "Untitled Note"
	}
	return r, nil
}

func prompt(content string, maxTitleLength int) string {
	return fmt.Sprintf(`You are an AI assistant that helps generate concise, descriptive titles for notes.

Here is the content of a note:
---
%s
---

Please generate:
1. A concise, descriptive title (maximum %d characters)
2. A brief summary of the content (maximum 150 characters)

Format your response as JSON with "title" and "summary" fields.`, sample(content, sampleLength), maxTitleLength)
}

// sample returns a representative slice of content: its beginning, middle
// and end joined with ellipses, bounded by maxLength.
func sample(content string, maxLength int) string {
	if len(content) <= maxLength {
		return content
	}
	third := maxLength / 3
	mid := len(content) / 2
	beginning := content[:third]
	middle := content[mid-third/2 : mid+third/2]
	end := content[len(content)-third:]
	return beginning + "... " + middle + "... " + end
}

// fingerprint keys the cache on the content's opening plus its length,
// which is cheap and collides rarely enough for a short-lived cache.
func fingerprint(content string) string {
	head := content
	if len(head) > fingerprintLength {
		head = head[:fingerprintLength]
	}
	return fmt.Sprintf("%s%d", head, len(content))
}

// Fallback builds a title from the first five words and a summary from
// the first hundred characters.
func Fallback(content string) Result {
	words := strings.Fields(content)
	if len(words) > 5 {
		words = words[:5]
	}
	title := "Untitled Note"
	if len(words) > 0 {
		title = strings.Join(words, " ") + "..."
	}
	summary := content
	if len(summary) > 100 {
		summary = summary[:100] + "..."
	}
	return Result{Title: title, Summary: summary}
}

// TTLCache is a concurrency-safe cache with per-entry expiry.
type TTLCache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]ttlEntry
}

type ttlEntry struct {
	result Result
	stored time.Time
}

// NewTTLCache builds a cache whose entries expire after ttl.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]ttlEntry),
	}
}

func (c *TTLCache) Get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	if c.now().Sub(e.stored) >= c.ttl {
		delete(c.entries, key)
		return Result{}, false
	}
	return e.result, true
}

func (c *TTLCache) Set(key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r.Cached = false
	c.entries[key] = ttlEntry{result: r, stored: c.now()}
}
