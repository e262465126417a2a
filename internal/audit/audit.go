// Package audit is the dispatch lifecycle audit trail: an append-only
// sqlite log of borrowed/completed/failed/node_returned events, kept purely
// for post-mortem inspection. Nothing on the dispatch path ever reads a row
// back out of it — it is not a job queue.
package audit

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Writer appends dispatch events to a sqlite database. A nil *Writer is
// valid and every method on it is a no-op, so callers that don't care about
// audit history (unit tests, a minimal bootstrap) can pass nil through
// unchanged.
type Writer struct {
	db *sql.DB
}

// Open creates (or reuses) the sqlite database at path and ensures its
// schema exists.
func Open(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("audit: create dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	w := &Writer{db: db}
	if err := w.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS dispatch_events (
		id TEXT PRIMARY KEY,
		phase TEXT NOT NULL,
		job_name TEXT NOT NULL,
		node TEXT NOT NULL,
		detail TEXT,
		at DATETIME NOT NULL
	);
	`
	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("audit: migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database. Safe to call on a nil Writer.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	return w.db.Close()
}

// Record inserts one dispatch event row. Failures are logged and swallowed:
// observability must never perturb dispatch, so Record never returns an
// error for a caller to act on. Safe to call on a nil Writer.
func (w *Writer) Record(phase, jobName, node, detail string) {
	if w == nil {
		return
	}
	_, err := w.db.Exec(
		`INSERT INTO dispatch_events (id, phase, job_name, node, detail, at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), phase, jobName, node, detail, time.Now().UTC(),
	)
	if err != nil {
		log.Printf("audit: record %s for %s: %v", phase, jobName, err)
	}
}
