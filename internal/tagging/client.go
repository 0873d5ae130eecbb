// Package tagging asks a chat-completion service for research tags and
// normalizes its reply into a TagSet.
package tagging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/starford/papernotes/internal/apperr"
)

// SystemPrompt constrains the reply to exactly three comma-separated tags.
const SystemPrompt = "Extract exactly 3 concise research tags. " +
	"Return them as a comma-separated list without explanations."

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.2
	DefaultMaxChars    = 4000
	DefaultTimeout     = 60 * time.Second
)

// Suggester turns free text into raw tag labels.
type Suggester interface {
	Suggest(ctx context.Context, text string) ([]string, error)
}

// Options configures an OpenAIClient. APIKey is required.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxChars    int
	Timeout     time.Duration
}

// OpenAIClient implements Suggester over the chat completions API.
type OpenAIClient struct {
	client   *openai.Client
	model    string
	temp     float32
	maxChars int
}

var _ Suggester = (*OpenAIClient)(nil)

// NewOpenAIClient validates opts and builds a client. A missing credential
// is a configuration error.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, apperr.Configf("tagging.api_key", "credential is not set")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(cfg),
		model:    opts.Model,
		temp:     opts.Temperature,
		maxChars: opts.MaxChars,
	}, nil
}

// Suggest sends text, truncated to the character budget, and returns up to
// MaxTags raw labels.
func (c *OpenAIClient) Suggest(ctx context.Context, text string) ([]string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: Truncate(text, c.maxChars)},
		},
		Temperature: c.temp,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrTaggingService, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", apperr.ErrTaggingService)
	}
	labels := SplitReply(resp.Choices[0].Message.Content)
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no tags in reply", apperr.ErrTaggingService)
	}
	return labels, nil
}

// Tags runs s on text and normalizes the reply. Failures are wrapped as
// RecordErrors keyed by key.
func Tags(ctx context.Context, s Suggester, key, text string) (TagSet, error) {
	raw, err := s.Suggest(ctx, text)
	if err != nil {
		if !errors.Is(err, apperr.ErrTaggingService) {
			err = fmt.Errorf("%w: %v", apperr.ErrTaggingService, err)
		}
		return nil, apperr.Record("tag", key, err)
	}
	set := Normalize(raw)
	if len(set) == 0 {
		return nil, apperr.Record("tag", key, fmt.Errorf("%w: no usable tags", apperr.ErrTaggingService))
	}
	return set, nil
}

// Truncate keeps at most max runes of s.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
