package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeStore is a minimal in-memory pathstore server.
type fakeStore struct {
	mu    sync.Mutex
	nodes map[string]any
}

func (f *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPut:
		var req NodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.nodes[key] = req.Value
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodGet && strings.HasSuffix(key, "/*"):
		prefix := strings.TrimSuffix(key, "*")
		var nodes []ListChildrenResponse
		for k, v := range f.nodes {
			if strings.HasPrefix(k, prefix) {
				nodes = append(nodes, ListChildrenResponse{Key: k, Value: v})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"nodes": nodes})
	case r.Method == http.MethodGet:
		v, ok := f.nodes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(NodeResponse{Key: key, Value: v})
	case r.Method == http.MethodDelete:
		for k := range f.nodes {
			if k == key || (r.URL.Query().Get("children") == "true" && strings.HasPrefix(k, key+"/")) {
				delete(f.nodes, k)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFake(t *testing.T) (*Client, *fakeStore) {
	t.Helper()
	fs := &fakeStore{nodes: make(map[string]any)}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "key")
	t.Cleanup(c.Close)
	return c, fs
}

func TestSummaryRoundTrip(t *testing.T) {
	c, _ := newFake(t)
	ctx := context.Background()

	if err := c.Save(ctx, "Moby Dick", "Chapter 1. Loomings", "Ishmael goes to sea."); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.Save(ctx, "Moby Dick", "Chương Một", "Vietnamese title."); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.Save(ctx, "Other Book", "Chapter 1. Loomings", "Different book."); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := c.Load(ctx, "Moby Dick")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d: %v", len(got), got)
	}
	if got["Chapter 1. Loomings"] != "Ishmael goes to sea." {
		t.Errorf("unexpected summary: %q", got["Chapter 1. Loomings"])
	}
	if got["Chương Một"] != "Vietnamese title." {
		t.Errorf("unexpected summary: %q", got["Chương Một"])
	}

	if err := c.Delete(ctx, "Moby Dick"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = c.Load(ctx, "Moby Dick")
	if err != nil {
		t.Fatalf("load after delete: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no summaries after delete, got %v", got)
	}
}

func TestGetNodeMissing(t *testing.T) {
	c, _ := newFake(t)
	node, err := c.GetNode(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node != nil {
		t.Errorf("expected nil node, got %+v", node)
	}
}

func TestPutNodeUnauthorized(t *testing.T) {
	c, _ := newFake(t)
	c.apiKey = "wrong"
	err := c.PutNode(context.Background(), "k", NodeRequest{Value: 1})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Op != "put node" {
		t.Errorf("unexpected status error %+v", statusErr)
	}
}

func TestLoadUnknownDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "key")

	got, err := c.Load(context.Background(), "never saved")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no summaries, got %v", got)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"  Chapter 1. Loomings ": "chapter-1-loomings",
		"Chương Một":             "ch-ng-m-t",
		"---":                    "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
	if keySegment("Chương Một") == keySegment("Chương Hai") {
		t.Error("distinct titles must not share a key segment")
	}
}
