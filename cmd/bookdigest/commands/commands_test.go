package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/bookdigest/internal/container"
	"github.com/dgallion1/bookdigest/internal/llm"
)

const story = `# Prologue

Opening words.

# Chapter One

The story begins. It goes on.

# Chapter Two

It ends.
`

type echoClient struct {
	mu       sync.Mutex
	requests []llm.Request
}

func (e *echoClient) Complete(_ context.Context, req llm.Request) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	return "condensed: " + strings.TrimSpace(req.User), nil
}
func (e *echoClient) Model() string        { return "echo" }
func (e *echoClient) Stats() *llm.LLMStats { return llm.NewLLMStats(time.Hour) }
func (e *echoClient) Close()               {}

func setup(t *testing.T) (book, envFile string) {
	t.Helper()
	t.Setenv("TOKENIZER", "words")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("SUMMARY_STORE", "memory")
	t.Setenv("SEGMENT_STRICT", "false")
	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	book = filepath.Join(dir, "story.md")
	require.NoError(t, os.WriteFile(book, []byte(story), 0o600))
	return book, filepath.Join(dir, "missing.env")
}

func run(t *testing.T, opts []container.Option, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := NewApp(opts...)
	app.Writer = &buf
	err := app.Run(context.Background(), append([]string{"bookdigest"}, args...))
	return buf.String(), err
}

func TestTOC(t *testing.T) {
	book, env := setup(t)
	got, err := run(t, nil, "toc", "--env", env, book)
	require.NoError(t, err)

	assert.Contains(t, got, "story (3 pages)")
	for _, title := range []string{"Prologue", "Chapter One", "Chapter Two"} {
		assert.Contains(t, got, title)
	}
}

func TestChapters(t *testing.T) {
	book, env := setup(t)
	got, err := run(t, nil, "chapters", "--env", env, "--strict", book)
	require.NoError(t, err)

	for _, title := range []string{"Prologue", "Chapter One", "Chapter Two"} {
		assert.Contains(t, got, title)
	}
}

func TestPlan(t *testing.T) {
	book, env := setup(t)
	got, err := run(t, nil, "plan", "--env", env, "--chapter", "Chapter One", "--detail", "1", "--min-chunk", "3", book)
	require.NoError(t, err)

	assert.Contains(t, got, "chunk size")
	assert.Contains(t, got, "Chapter One")
}

func TestPlan_UnknownChapter(t *testing.T) {
	book, env := setup(t)
	_, err := run(t, nil, "plan", "--env", env, "--chapter", "Epilogue", book)
	assert.ErrorContains(t, err, "chapter not found")
}

func TestPlan_InvalidDetail(t *testing.T) {
	book, env := setup(t)
	_, err := run(t, nil, "plan", "--env", env, "--chapter", "Prologue", "--detail", "3", book)
	assert.ErrorContains(t, err, "detail must be between 0 and 1")
}

func TestSummarize(t *testing.T) {
	book, env := setup(t)
	client := &echoClient{}
	got, err := run(t, []container.Option{container.WithLLMClient(client)},
		"summarize", "--env", env, "--chapter", "Chapter One", "--detail", "0", "--instructions", "Use one sentence.", book)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "condensed: Chapter One"), got)
	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, llm.SystemPrompt("Use one sentence."), req.System)
	assert.Zero(t, req.Temperature)
}

func TestMissingFileArgument(t *testing.T) {
	_, env := setup(t)
	_, err := run(t, nil, "toc", "--env", env)
	assert.ErrorContains(t, err, "expected exactly one FILE argument")
}
