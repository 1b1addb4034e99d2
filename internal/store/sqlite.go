// Package store persists chapter summaries in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const ddlSummaries = `CREATE TABLE IF NOT EXISTS summaries (
	doc_id     TEXT NOT NULL,
	title      TEXT NOT NULL,
	summary    TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (doc_id, title)
)`

// SQLite is a summary persister backed by a single database file.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path in WAL mode and
// ensures the schema exists.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_journal=WAL")
	if err != nil {
		return nil, fmt.Errorf("store.Open: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.Open: ping: %w", err)
	}
	// One writer at a time avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(ddlSummaries); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.Open: migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Load returns every stored summary of docID keyed by chapter title.
func (s *SQLite) Load(ctx context.Context, docID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title, summary FROM summaries WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, fmt.Errorf("store.Load: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var title, summary string
		if err := rows.Scan(&title, &summary); err != nil {
			return nil, fmt.Errorf("store.Load: scan: %w", err)
		}
		out[title] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.Load: %w", err)
	}
	return out, nil
}

// Save upserts the summary of one chapter.
func (s *SQLite) Save(ctx context.Context, docID, title, summary string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO summaries (doc_id, title, summary, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_id, title) DO UPDATE SET summary = excluded.summary, updated_at = excluded.updated_at`,
		docID, title, summary, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store.Save: %w", err)
	}
	return nil
}

// Delete removes every summary of docID.
func (s *SQLite) Delete(ctx context.Context, docID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM summaries WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("store.Delete: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
