// Package llm talks to chat-completion providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Request is a single-turn chat completion.
type Request struct {
	System      string
	User        string
	Model       string // empty means the client's default model
	Temperature float64
}

// Completer returns the assistant text for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrAPIKeyNotSet is returned when a provider is selected without credentials.
var ErrAPIKeyNotSet = errors.New("llm API key not set")

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// MaxRetries is the default number of retries after the first attempt.
const MaxRetries = 3

// Options configure a provider client.
type Options struct {
	Provider  string // "openai" (default) or "anthropic"
	APIKey    string
	Model     string
	BaseURL   string  // overrides the provider endpoint, mainly for tests
	RateLimit float64 // requests per second; 0 disables limiting
	Stats     *LLMStats
}

// Client is a Completer that also reports its default model and latency stats.
type Client interface {
	Completer
	Model() string
	Stats() *LLMStats
	Close()
}

// New builds the client for opts.Provider.
func New(opts Options) (Client, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "openai":
		return NewOpenAIClient(opts)
	case "anthropic", "claude":
		return NewClaudeClient(opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
