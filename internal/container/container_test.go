package container

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/pathstore"
	"github.com/dgallion1/bookdigest/internal/segment"
	"github.com/dgallion1/bookdigest/internal/store"
	"github.com/dgallion1/bookdigest/internal/summarize"
	"github.com/dgallion1/bookdigest/internal/tokenizer"
)

type echoClient struct {
	stats *llm.LLMStats
	calls int
}

func (e *echoClient) Complete(_ context.Context, req llm.Request) (string, error) {
	e.calls++
	return "condensed: " + req.User, nil
}
func (e *echoClient) Model() string        { return "echo" }
func (e *echoClient) Stats() *llm.LLMStats { return e.stats }
func (e *echoClient) Close()               {}

func baseConfig() config.Config {
	return config.Config{
		LLMProvider:        "openai",
		OpenAIAPIKey:       "sk-test",
		OpenAIModel:        "gpt-4o-mini",
		Tokenizer:          "words",
		SummaryConcurrency: 2,
		LLMCallTimeout:     time.Second,
		LLMMaxRetries:      1,
		SummaryStore:       "memory",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_MemoryStore(t *testing.T) {
	c, err := New(baseConfig(), quietLogger())
	require.NoError(t, err)
	defer c.Close()

	assert.IsType(t, tokenizer.Words{}, c.Tokenizer)
	assert.IsType(t, &llm.OpenAIClient{}, c.LLM)
	assert.Nil(t, c.Persister)
	assert.Equal(t, 2, c.Summarizer.Concurrency)
	assert.Equal(t, time.Second, c.Summarizer.CallTimeout)
	assert.Equal(t, 1, c.Summarizer.MaxRetries)
	assert.NotNil(t, c.Library)
}

func TestNew_AnthropicProvider(t *testing.T) {
	cfg := baseConfig()
	cfg.LLMProvider = "anthropic"
	cfg.AnthropicAPIKey = "sk-ant"
	cfg.AnthropicModel = "claude-3-5-haiku-latest"

	c, err := New(cfg, quietLogger())
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "claude-3-5-haiku-latest", c.LLM.Model())
}

func TestNew_SQLiteStore(t *testing.T) {
	cfg := baseConfig()
	cfg.SummaryStore = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "nested", "summaries.db")

	c, err := New(cfg, quietLogger())
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &store.SQLite{}, c.Persister)
}

func TestNew_PathstoreStore(t *testing.T) {
	cfg := baseConfig()
	cfg.SummaryStore = "pathstore"
	cfg.PathstoreURL = "http://localhost:1"
	cfg.PathstoreAPIKey = "key"

	c, err := New(cfg, quietLogger())
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &pathstore.Client{}, c.Persister)
}

func TestNew_Errors(t *testing.T) {
	cfg := baseConfig()
	cfg.Tokenizer = "sentencepiece"
	_, err := New(cfg, quietLogger())
	assert.Error(t, err)

	cfg = baseConfig()
	cfg.OpenAIAPIKey = ""
	_, err = New(cfg, quietLogger())
	assert.ErrorIs(t, err, llm.ErrAPIKeyNotSet)

	cfg = baseConfig()
	cfg.SummaryStore = "redis"
	_, err = New(cfg, quietLogger())
	assert.Error(t, err)
}

func TestNew_LibrarySummarizesThroughInjectedClient(t *testing.T) {
	client := &echoClient{stats: llm.NewLLMStats(time.Hour)}
	c, err := New(baseConfig(), quietLogger(), WithLLMClient(client))
	require.NoError(t, err)
	defer c.Close()

	content := segment.NewChapterContent()
	content.Set("One", "A short chapter")
	c.Library.Put(context.Background(), "book", content)

	opts := summarize.DefaultOptions()
	opts.Detail = 0
	got, err := c.Library.Summary(context.Background(), "book", "One", opts)
	require.NoError(t, err)
	assert.Equal(t, "condensed: A short chapter.", got)

	_, err = c.Library.Summary(context.Background(), "book", "One", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
}
