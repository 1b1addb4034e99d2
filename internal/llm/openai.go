package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"
)

// DefaultOpenAIModel is used when no model is configured or requested.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient calls the Chat Completions API.
type OpenAIClient struct {
	client  openai.Client
	model   string
	limiter *rate.Limiter
	stats   *LLMStats
}

func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrAPIKeyNotSet)
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	stats := opts.Stats
	if stats == nil {
		stats = NewLLMStats(time.Hour)
	}

	// Retries are driven by the caller so that backoff and attempt counts are
	// the same for every provider.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAIClient{
		client:  openai.NewClient(reqOpts...),
		model:   model,
		limiter: newLimiter(opts.RateLimit),
		stats:   stats,
	}, nil
}

func (c *OpenAIClient) Model() string    { return c.model }
func (c *OpenAIClient) Stats() *LLMStats { return c.stats }
func (c *OpenAIClient) Close()           {}

// Complete sends the system and user messages and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := wait(ctx, c.limiter); err != nil {
		return "", err
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	c.stats.Observe(model, start, err)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
				return "", &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
			}
		}
		return "", fmt.Errorf("openai api call failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}
