package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/bookdigest/internal/chunker"
	"github.com/dgallion1/bookdigest/internal/library"
	"github.com/dgallion1/bookdigest/internal/summarize"
)

// handleListDocuments lists all cached documents.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": s.library.Documents()})
}

// handleListChapters lists the chapters of a document in TOC order.
func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	chapters, err := s.library.Chapters(docID)
	if err != nil {
		s.libraryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":   docID,
		"chapters": chapters,
	})
}

// handleSummary returns the summary of one chapter, computing it on first
// request.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	q := r.URL.Query()

	chapter := q.Get("chapter")
	if chapter == "" {
		jsonError(w, "chapter query parameter is required", http.StatusBadRequest)
		return
	}

	opts, err := s.summaryOptions(q.Get("detail"), q.Get("model"), q.Get("recursive"), q.Get("instructions"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := s.library.Summary(r.Context(), docID, chapter, opts)
	if err != nil {
		s.libraryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":  docID,
		"chapter": chapter,
		"summary": summary,
	})
}

// summaryOptions fills request overrides over the configured defaults.
func (s *Server) summaryOptions(detail, model, recursive, instructions string) (summarize.Options, error) {
	opts := summarize.Options{
		Detail:                 s.cfg.SummaryDetail,
		Model:                  s.cfg.LLMModel(),
		AdditionalInstructions: strings.TrimSpace(instructions),
		MinimumChunkSize:       s.cfg.MinChunkSize,
		Delimiter:              s.cfg.ChunkDelimiter,
		Recursive:              s.cfg.SummarizeRecursive,
	}
	if detail != "" {
		d, err := strconv.ParseFloat(detail, 64)
		if err != nil || d < 0 || d > 1 {
			return opts, chunker.ErrInvalidDetail
		}
		opts.Detail = d
	}
	if model != "" {
		opts.Model = model
	}
	if recursive != "" {
		b, err := strconv.ParseBool(recursive)
		if err != nil {
			return opts, errors.New("recursive must be true or false")
		}
		opts.Recursive = b
	}
	return opts, nil
}

// handleDeleteDocument forgets a cached document and removes its upload.
// Persisted summaries are kept.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	forgotten := s.library.Forget(docID)

	uploads, err := s.uploadsFor(docID)
	if err != nil {
		jsonError(w, "failed to read uploads: "+err.Error(), http.StatusInternalServerError)
		return
	}
	removed := 0
	for _, path := range uploads {
		if err := os.Remove(path); err != nil {
			s.log.Warn("remove upload failed", "path", path, "error", err)
			continue
		}
		removed++
	}

	if !forgotten && removed == 0 {
		jsonError(w, library.ErrDocumentNotFound.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":          docID,
		"forgotten":       forgotten,
		"uploads_removed": removed,
	})
}

// libraryError maps library and summarization errors to HTTP responses.
func (s *Server) libraryError(w http.ResponseWriter, err error) {
	var partial *summarize.PartialError
	switch {
	case errors.Is(err, library.ErrDocumentNotFound), errors.Is(err, library.ErrChapterNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, chunker.ErrInvalidDetail):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &partial):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{
			"error":     partial.Error(),
			"completed": len(partial.Completed),
		})
	default:
		s.log.Error("summary request failed", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}
