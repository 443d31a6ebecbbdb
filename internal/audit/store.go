package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store is the indexed record sink: a SQLite mirror of the audit log,
// queryable by trace and action. The chain of record lives in the JSONL
// file; the store only exists so replay and dashboards do not have to
// scan the whole log.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite event store at path.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("audit: store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			level TEXT NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			trace_id TEXT,
			correlation_id TEXT,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_trace ON events(trace_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_action ON events(action);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("audit: migrate store: %w", err)
		}
	}
	return nil
}

// Insert mirrors an entry into the events table.
func (s *Store) Insert(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("audit: marshal payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (ts, level, actor, action, trace_id, correlation_id, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.Level, entry.Actor, entry.Action,
		entry.TraceID, entry.CorrelationID, string(payload))
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

// ByTrace returns all stored entries for a trace in insertion order.
func (s *Store) ByTrace(ctx context.Context, traceID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, level, actor, action, trace_id, correlation_id, payload
		 FROM events WHERE trace_id = ? ORDER BY id`, traceID)
	if err != nil {
		return nil, fmt.Errorf("audit: query by trace: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var payload string
		if err := rows.Scan(&e.Timestamp, &e.Level, &e.Actor, &e.Action,
			&e.TraceID, &e.CorrelationID, &payload); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("audit: decode payload: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByAction returns how many stored entries carry the given action.
func (s *Store) CountByAction(ctx context.Context, action string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE action = ?`, action).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("audit: count by action: %w", err)
	}
	return n, nil
}
