// Package summarize turns long text into a summary whose length is steered
// by a detail ratio, one completion call per chunk.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/bookdigest/internal/chunker"
	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/tokenizer"
)

// Options control a single summarization.
type Options struct {
	// Detail in [0, 1]: 0 summarizes the whole text as one chunk, 1 uses the
	// finest chunking allowed by MinimumChunkSize.
	Detail                 float64
	Model                  string
	AdditionalInstructions string
	MinimumChunkSize       int
	Delimiter              string
	// Recursive feeds every previous chunk summary into the next prompt.
	Recursive bool
}

// DefaultOptions returns the options used when a caller supplies none.
func DefaultOptions() Options {
	cfg := chunker.DefaultConfig()
	return Options{
		Detail:           0.75,
		MinimumChunkSize: cfg.MinimumChunkSize,
		Delimiter:        cfg.Delimiter,
	}
}

func (o Options) withDefaults() Options {
	cfg := chunker.DefaultConfig()
	if o.MinimumChunkSize <= 0 {
		o.MinimumChunkSize = cfg.MinimumChunkSize
	}
	if o.Delimiter == "" {
		o.Delimiter = cfg.Delimiter
	}
	return o
}

// Result is a summary together with how it was produced.
type Result struct {
	Text    string
	Plan    chunker.ChunkPlan
	Chunks  int
	Dropped int
}

// PartialError reports a chunk whose completion failed. Completed holds the
// summaries of every chunk before Index, in order.
type PartialError struct {
	Completed []string
	Index     int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("summarize chunk %d (%d completed): %v", e.Index, len(e.Completed), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Summarizer drives completion calls over planned chunks.
type Summarizer struct {
	Completer llm.Completer
	Tokenizer tokenizer.Tokenizer
	Log       *slog.Logger

	// Concurrency bounds in-flight calls in non-recursive mode. Values <= 1
	// run chunks one at a time.
	Concurrency int
	// CallTimeout bounds each completion attempt. Zero means no limit.
	CallTimeout time.Duration
	// MaxRetries is how many times a transient failure is retried.
	MaxRetries int
	// Backoff returns the wait before retry n. Defaults to llm.Backoff.
	Backoff func(attempt int) time.Duration
}

// New returns a Summarizer with production retry and concurrency settings.
func New(c llm.Completer, tok tokenizer.Tokenizer, log *slog.Logger) *Summarizer {
	return &Summarizer{
		Completer:   c,
		Tokenizer:   tok,
		Log:         log,
		Concurrency: 4,
		CallTimeout: 2 * time.Minute,
		MaxRetries:  llm.MaxRetries,
	}
}

// Summarize returns the chunk summaries of text joined by blank lines.
func (s *Summarizer) Summarize(ctx context.Context, text string, opts Options) (string, error) {
	res, err := s.SummarizeDetailed(ctx, text, opts)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// SummarizeDetailed is Summarize plus the plan and chunk counts it used.
func (s *Summarizer) SummarizeDetailed(ctx context.Context, text string, opts Options) (Result, error) {
	opts = opts.withDefaults()
	log := s.logger()

	plan, err := chunker.Plan(s.Tokenizer, text, opts.Detail, opts.MinimumChunkSize, opts.Delimiter)
	if err != nil {
		return Result{}, fmt.Errorf("plan chunks: %w", err)
	}
	chunks, dropped, err := chunker.ChunkOnDelimiter(s.Tokenizer, text, plan.ChunkSize, opts.Delimiter)
	if err != nil {
		return Result{}, fmt.Errorf("chunk text: %w", err)
	}
	if dropped > 0 {
		log.Warn("fragments dropped while chunking", "dropped", dropped, "chunk_size", plan.ChunkSize)
	}
	log.Debug("summarizing",
		"detail", opts.Detail,
		"chunks", len(chunks),
		"chunk_size", plan.ChunkSize,
		"max_chunks", plan.MaxChunks,
		"recursive", opts.Recursive,
	)

	system := llm.SystemPrompt(opts.AdditionalInstructions)
	var summaries []string
	if opts.Recursive {
		summaries, err = s.fold(ctx, chunks, system, opts.Model)
	} else {
		summaries, err = s.fanOut(ctx, chunks, system, opts.Model)
	}
	if err != nil {
		return Result{}, err
	}

	return Result{
		Text:    strings.Join(summaries, "\n\n"),
		Plan:    plan,
		Chunks:  len(chunks),
		Dropped: dropped,
	}, nil
}

// fold summarizes chunks in order, giving each call every earlier summary.
func (s *Summarizer) fold(ctx context.Context, chunks []string, system, model string) ([]string, error) {
	acc := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := s.complete(ctx, i, llm.Request{
			System: system,
			User:   llm.RecursivePrompt(acc, chunk),
			Model:  model,
		})
		if err != nil {
			return nil, &PartialError{Completed: acc, Index: i, Err: err}
		}
		acc = append(acc, out)
	}
	return acc, nil
}

// fanOut summarizes chunks independently with bounded concurrency. A failure
// at chunk i cancels chunks after i; chunks before i run to completion so the
// completed prefix is kept.
func (s *Summarizer) fanOut(ctx context.Context, chunks []string, system, model string) ([]string, error) {
	limit := s.Concurrency
	if limit < 1 {
		limit = 1
	}
	summaries := make([]string, len(chunks))
	errs := make([]error, len(chunks))

	var (
		mu      sync.Mutex
		failAt  = len(chunks)
		cancels = make([]context.CancelFunc, len(chunks))
	)

	var g errgroup.Group
	g.SetLimit(limit)
	for i, chunk := range chunks {
		g.Go(func() error {
			mu.Lock()
			if i > failAt {
				mu.Unlock()
				return nil
			}
			cctx, cancel := context.WithCancel(ctx)
			cancels[i] = cancel
			mu.Unlock()
			defer cancel()

			out, err := s.complete(cctx, i, llm.Request{System: system, User: chunk, Model: model})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if i > failAt {
					// Aborted by an earlier chunk's failure.
					return nil
				}
				errs[i] = err
				failAt = i
				for _, c := range cancels[i+1:] {
					if c != nil {
						c()
					}
				}
				return nil
			}
			summaries[i] = out
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, &PartialError{Completed: summaries[:i], Index: i, Err: err}
		}
	}
	return summaries, nil
}

// complete issues one call with retries for transient failures.
func (s *Summarizer) complete(ctx context.Context, index int, req llm.Request) (string, error) {
	log := s.logger()
	backoff := s.Backoff
	if backoff == nil {
		backoff = llm.Backoff
	}

	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff(attempt - 1)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		out, err := s.call(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !s.retryable(ctx, err) {
			return "", err
		}
		log.Warn("retryable completion error", "chunk", index, "attempt", attempt, "error", err)
	}
	return "", fmt.Errorf("giving up after %d retries: %w", s.MaxRetries, lastErr)
}

func (s *Summarizer) call(ctx context.Context, req llm.Request) (string, error) {
	if s.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.CallTimeout)
		defer cancel()
	}
	return s.Completer.Complete(ctx, req)
}

// retryable reports transient provider errors and per-call timeouts. A done
// parent context is never retried.
func (s *Summarizer) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return llm.IsRetryable(err) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Summarizer) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
