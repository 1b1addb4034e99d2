package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/bookdigest/internal/doctree"
	"github.com/dgallion1/bookdigest/internal/library"
	"github.com/dgallion1/bookdigest/internal/parser"
	"github.com/dgallion1/bookdigest/internal/segment"
)

// ParseFile reads and parses the document stored at path.
func ParseFile(path string, opts parser.Options) (*doctree.Document, []byte, error) {
	p, err := parser.ForFileWith(path, opts)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := p.Parse(bytes.NewReader(data), path)
	if err != nil {
		return nil, nil, fmt.Errorf("parse: %w", err)
	}
	return doc, data, nil
}

// Worker processes a single document job.
type Worker struct {
	library   *library.Library
	segmenter segment.Segmenter
	parseOpts parser.Options
	log       *slog.Logger
}

func NewWorker(lib *library.Library, seg segment.Segmenter, opts parser.Options, log *slog.Logger) *Worker {
	return &Worker{
		library:   lib,
		segmenter: seg,
		parseOpts: opts,
		log:       log,
	}
}

// Process runs the ingest pipeline for a job. The outcome is recorded on
// the job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	_ = w.run(ctx, job)
}

// Ingest parses and segments the file at path and caches it in the library
// synchronously.
func (w *Worker) Ingest(ctx context.Context, path string) (JobSnapshot, error) {
	job := NewJob(library.DocumentID(path), path, path)
	err := w.run(ctx, job)
	return job.Snapshot(), err
}

func (w *Worker) run(ctx context.Context, job *Job) error {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, data, err := ParseFile(job.Path(), w.parseOpts)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return err
	}
	job.SetParsed(doc.Title, len(doc.Pages), len(doc.TOC), ContentHashHex(data))
	log.Info("parsed document", "title", doc.Title, "pages", len(doc.Pages), "toc_entries", len(doc.TOC))

	if err := ctx.Err(); err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return err
	}

	// Phase 2: Segment
	job.SetStatus(StatusSegmenting, "segmenting")
	content, err := w.segmenter.Segment(doc.TOC, doc.Pages)
	if err != nil {
		var unmatched *segment.UnmatchedError
		if errors.As(err, &unmatched) {
			log.Error("chapter heading not found", "chapter", unmatched.Title, "index", unmatched.Index)
		} else {
			log.Error("segment failed", "error", err)
		}
		job.AddError(fmt.Sprintf("segment: %s", err))
		job.SetStatus(StatusFailed, "segmenting")
		return err
	}

	empty := content.Empty()
	for _, title := range empty {
		log.Warn("chapter has no content", "chapter", title)
	}
	job.SetSegmented(content.Len(), empty)

	// Phase 3: Cache
	w.library.Put(ctx, job.DocID, content)
	log.Info("document cached", "chapters", content.Len(), "empty_chapters", len(empty))

	job.SetStatus(StatusCompleted, "done")
	return nil
}
