// Package library caches segmented documents and their chapter summaries.
package library

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dgallion1/bookdigest/internal/segment"
	"github.com/dgallion1/bookdigest/internal/summarize"
)

// MinCachedSummary is the length a stored summary must exceed to be served
// from cache. Shorter values are treated as failed output and recomputed.
const MinCachedSummary = 10

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrChapterNotFound  = errors.New("chapter not found")
)

// Summarizer produces a summary for chapter text.
type Summarizer interface {
	Summarize(ctx context.Context, text string, opts summarize.Options) (string, error)
}

// Persister stores chapter summaries outside the process.
type Persister interface {
	Load(ctx context.Context, docID string) (map[string]string, error)
	Save(ctx context.Context, docID, title, summary string) error
}

// DocumentInfo describes a cached document.
type DocumentInfo struct {
	ID       string    `json:"id"`
	Chapters int       `json:"chapters"`
	AddedAt  time.Time `json:"added_at"`
}

// ChapterInfo describes one chapter of a cached document.
type ChapterInfo struct {
	Title      string `json:"title"`
	Chars      int    `json:"chars"`
	Summarized bool   `json:"summarized"`
}

type document struct {
	mu      sync.RWMutex
	content *segment.ChapterContent
	addedAt time.Time
}

// Library maps document ids to chapter content. All methods are safe for
// concurrent use.
type Library struct {
	summarizer Summarizer
	persister  Persister
	log        *slog.Logger

	mu     sync.RWMutex
	docs   map[string]*document
	flight singleflight.Group
}

// New returns an empty library. persister may be nil.
func New(s Summarizer, p Persister, log *slog.Logger) *Library {
	if log == nil {
		log = slog.Default()
	}
	return &Library{
		summarizer: s,
		persister:  p,
		log:        log,
		docs:       make(map[string]*document),
	}
}

// DocumentID derives the cache key for a file: its base name without extension.
func DocumentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Put stores content under docID, replacing any previous document, and
// restores summaries the persister already holds for it.
func (l *Library) Put(ctx context.Context, docID string, content *segment.ChapterContent) {
	if l.persister != nil {
		saved, err := l.persister.Load(ctx, docID)
		if err != nil {
			l.log.Warn("load persisted summaries failed", "doc_id", docID, "error", err)
		}
		restored := 0
		for title, summary := range saved {
			if content.SetSummary(title, summary) {
				restored++
			}
		}
		if restored > 0 {
			l.log.Info("restored summaries", "doc_id", docID, "count", restored)
		}
	}

	l.mu.Lock()
	l.docs[docID] = &document{content: content, addedAt: time.Now()}
	l.mu.Unlock()
}

// Has reports whether docID is cached.
func (l *Library) Has(docID string) bool {
	_, ok := l.get(docID)
	return ok
}

// Forget evicts docID. Persisted summaries are kept.
func (l *Library) Forget(docID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.docs[docID]; !ok {
		return false
	}
	delete(l.docs, docID)
	return true
}

// Documents lists cached documents sorted by id.
func (l *Library) Documents() []DocumentInfo {
	l.mu.RLock()
	out := make([]DocumentInfo, 0, len(l.docs))
	for id, d := range l.docs {
		d.mu.RLock()
		out = append(out, DocumentInfo{ID: id, Chapters: d.content.Len(), AddedAt: d.addedAt})
		d.mu.RUnlock()
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Chapters lists the chapters of docID in TOC order.
func (l *Library) Chapters(docID string) ([]ChapterInfo, error) {
	d, ok := l.get(docID)
	if !ok {
		return nil, ErrDocumentNotFound
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	chapters := d.content.Chapters()
	out := make([]ChapterInfo, len(chapters))
	for i, ch := range chapters {
		out[i] = ChapterInfo{
			Title:      ch.Title,
			Chars:      len(ch.Content),
			Summarized: len(ch.Summary) > MinCachedSummary,
		}
	}
	return out, nil
}

// Content returns the raw text of a chapter.
func (l *Library) Content(docID, title string) (string, error) {
	_, ch, err := l.chapter(docID, title)
	if err != nil {
		return "", err
	}
	return ch.Content, nil
}

// Summary returns the cached summary of a chapter, computing and storing it
// on first use. Concurrent requests for the same chapter share one
// computation, which runs detached from any single caller's cancellation;
// each caller still returns early when its own ctx is done. The cache is
// keyed by chapter only, so opts apply to the first computation.
func (l *Library) Summary(ctx context.Context, docID, title string, opts summarize.Options) (string, error) {
	_, ch, err := l.chapter(docID, title)
	if err != nil {
		return "", err
	}
	if len(ch.Summary) > MinCachedSummary {
		return ch.Summary, nil
	}

	key := docID + "\x00" + title
	results := l.flight.DoChan(key, func() (any, error) {
		return l.summarize(context.WithoutCancel(ctx), docID, title, opts)
	})
	select {
	case res := <-results:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			l.log.Debug("summary shared with concurrent request", "doc_id", docID, "chapter", title)
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *Library) summarize(ctx context.Context, docID, title string, opts summarize.Options) (string, error) {
	// Another flight may have finished since the caller's check.
	d, ch, err := l.chapter(docID, title)
	if err != nil {
		return "", err
	}
	if len(ch.Summary) > MinCachedSummary {
		return ch.Summary, nil
	}

	log := l.log.With("doc_id", docID, "chapter", title)
	start := time.Now()
	summary, err := l.summarizer.Summarize(ctx, ch.Content, opts)
	if err != nil {
		log.Error("summarize failed", "error", err)
		return "", err
	}
	log.Info("chapter summarized", "chars", len(ch.Content), "summary_chars", len(summary), "elapsed", time.Since(start))

	d.mu.Lock()
	d.content.SetSummary(title, summary)
	d.mu.Unlock()

	if cur, ok := l.get(docID); !ok || cur != d {
		log.Info("document replaced or forgotten during summarization, summary not persisted")
		return summary, nil
	}
	if l.persister != nil {
		if err := l.persister.Save(ctx, docID, title, summary); err != nil {
			log.Warn("persist summary failed", "error", err)
		}
	}
	return summary, nil
}

func (l *Library) get(docID string) (*document, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.docs[docID]
	return d, ok
}

func (l *Library) chapter(docID, title string) (*document, segment.Chapter, error) {
	d, ok := l.get(docID)
	if !ok {
		return nil, segment.Chapter{}, ErrDocumentNotFound
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.content.Get(title)
	if !ok {
		return nil, segment.Chapter{}, ErrChapterNotFound
	}
	return d, ch, nil
}
