package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/bookdigest/internal/library"
	"github.com/dgallion1/bookdigest/internal/parser"
	"github.com/dgallion1/bookdigest/internal/pipeline"
)

// errDuplicate reports an upload whose document id is already taken.
var errDuplicate = errors.New("document already exists")

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	docID := library.DocumentID(filename)
	path, err := s.saveUpload(docID, filename, data)
	if errors.Is(err, errDuplicate) {
		jsonError(w, fmt.Sprintf("document %q already exists", docID), http.StatusConflict)
		return
	}
	if err != nil {
		s.log.Error("save upload failed", "filename", filename, "error", err)
		jsonError(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	job := pipeline.NewJob(docID, filename, path)
	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		job.Title = title
	}

	if err := s.orchestrator.Submit(job); err != nil {
		os.Remove(path)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"doc_id":   job.DocID,
		"status":   job.Snapshot().Status,
		"poll_url": fmt.Sprintf("/api/ingest/%s/status", job.ID),
	})
}

// saveUpload writes data into the upload directory. Document ids are file
// base names, so any stored file or cached document with the same id is a
// conflict.
func (s *Server) saveUpload(docID, filename string, data []byte) (string, error) {
	if s.library.Has(docID) {
		return "", errDuplicate
	}
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", err
	}
	existing, err := s.uploadsFor(docID)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return "", errDuplicate
	}

	path := filepath.Join(s.cfg.UploadDir, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return "", errDuplicate
	}
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}

// uploadsFor lists stored uploads whose document id is docID.
func (s *Server) uploadsFor(docID string) ([]string, error) {
	entries, err := os.ReadDir(s.cfg.UploadDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && library.DocumentID(e.Name()) == docID {
			paths = append(paths, filepath.Join(s.cfg.UploadDir, e.Name()))
		}
	}
	return paths, nil
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   snap.ID,
		"doc_id":   snap.DocID,
		"status":   snap.Status,
		"phase":    snap.Phase,
		"title":    snap.Title,
		"progress": snap.Progress,
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
