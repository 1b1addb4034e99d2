// Package container wires configured services for the server and the CLI.
package container

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/library"
	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/pathstore"
	"github.com/dgallion1/bookdigest/internal/store"
	"github.com/dgallion1/bookdigest/internal/summarize"
	"github.com/dgallion1/bookdigest/internal/tokenizer"
)

// Container holds the services built from a Config.
type Container struct {
	Tokenizer  tokenizer.Tokenizer
	LLM        llm.Client
	Summarizer *summarize.Summarizer
	Persister  library.Persister
	Library    *library.Library
	Logger     *slog.Logger

	closers []func()
}

type options struct {
	completer llm.Client
}

// Option customizes New.
type Option func(*options)

// WithLLMClient replaces the provider client built from the config.
func WithLLMClient(c llm.Client) Option {
	return func(o *options) { o.completer = c }
}

// New builds the tokenizer, completion client, summarizer, summary
// persister and library described by cfg.
func New(cfg config.Config, log *slog.Logger, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Container{Logger: log}

	tok, err := tokenizer.New(cfg.Tokenizer, cfg.TokenizerModel, cfg.TokenizerEncoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	c.Tokenizer = tok

	client := o.completer
	if client == nil {
		client, err = llm.New(llm.Options{
			Provider:  cfg.LLMProvider,
			APIKey:    cfg.LLMAPIKey(),
			Model:     cfg.LLMModel(),
			RateLimit: cfg.LLMRateLimit,
			Stats:     llm.NewLLMStats(time.Hour),
		})
		if err != nil {
			return nil, fmt.Errorf("llm client: %w", err)
		}
	}
	c.LLM = client
	c.closers = append(c.closers, client.Close)

	s := summarize.New(client, tok, log.With("component", "summarize"))
	s.Concurrency = cfg.SummaryConcurrency
	s.CallTimeout = cfg.LLMCallTimeout
	s.MaxRetries = cfg.LLMMaxRetries
	c.Summarizer = s

	if err := c.openPersister(cfg); err != nil {
		c.Close()
		return nil, err
	}

	c.Library = library.New(s, c.Persister, log.With("component", "library"))
	return c, nil
}

func (c *Container) openPersister(cfg config.Config) error {
	switch cfg.SummaryStore {
	case "", "memory":
		return nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("sqlite dir: %w", err)
			}
		}
		db, err := store.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		c.Persister = db
		c.closers = append(c.closers, func() { db.Close() })
	case "pathstore":
		ps := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		c.Persister = ps
		c.closers = append(c.closers, ps.Close)
	default:
		return fmt.Errorf("unknown summary store %q", cfg.SummaryStore)
	}
	c.Logger.Info("summary persistence enabled", "store", cfg.SummaryStore)
	return nil
}

// Close releases clients and stores in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
