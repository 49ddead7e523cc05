// Package history persists the reading position and a section lifecycle
// audit trail in SQLite, so reopening the book resumes where the reader
// left off.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// OpenMemory creates an in-memory store, useful for testing.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory history db: %w", err)
	}
	// A pooled second connection would see its own empty memory database.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS reading_positions (
    book_id    TEXT PRIMARY KEY,
    section_id TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS section_events (
    id         TEXT PRIMARY KEY,
    book_id    TEXT NOT NULL,
    section_id TEXT NOT NULL,
    kind       TEXT NOT NULL CHECK(kind IN ('loaded','unloaded','errored')),
    success    INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_section_events_book ON section_events(book_id, created_at);
`

// SetPosition upserts the reading position for a book.
func (s *Store) SetPosition(ctx context.Context, bookID, sectionID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reading_positions (book_id, section_id, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(book_id) DO UPDATE SET section_id = excluded.section_id, updated_at = excluded.updated_at`,
		bookID, sectionID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving position: %w", err)
	}
	return nil
}

// Position returns the saved section id for a book, empty when none.
func (s *Store) Position(ctx context.Context, bookID string) (string, error) {
	var sectionID string
	err := s.db.QueryRowContext(ctx,
		`SELECT section_id FROM reading_positions WHERE book_id = ?`, bookID,
	).Scan(&sectionID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading position: %w", err)
	}
	return sectionID, nil
}

// Event is one recorded lifecycle transition.
type Event struct {
	ID        string
	BookID    string
	SectionID string
	Kind      string
	Success   bool
	CreatedAt time.Time
}

// RecordEvent appends a lifecycle event to the audit trail.
func (s *Store) RecordEvent(ctx context.Context, bookID, sectionID, kind string, success bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO section_events (id, book_id, section_id, kind, success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), bookID, sectionID, kind, success, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events for a book, most recent first.
func (s *Store) RecentEvents(ctx context.Context, bookID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book_id, section_id, kind, success, created_at
		 FROM section_events WHERE book_id = ?
		 ORDER BY created_at DESC, id LIMIT ?`,
		bookID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.BookID, &e.SectionID, &e.Kind, &e.Success, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
