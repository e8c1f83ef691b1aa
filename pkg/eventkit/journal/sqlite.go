// Package journal persists an audit trail of events to SQLite. It is
// an inspection tool, not a delivery mechanism: the journal gives no
// delivery guarantees and is never read back into the bus.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/randalmurphal/eventkit/pkg/eventkit/event"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("journal store is closed")

// Store appends events to a SQLite table. It implements event.Handler,
// so it can be subscribed to any event type directly:
//
//	bus.On(event.Name("OrderPlaced"), store)
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Open creates a journal store. The path should be a file path
// (e.g. "./events.db") or ":memory:" for testing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			payload BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_event_type
		ON events(event_type)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &Store{db: db}, nil
}

// Append records one event.
func (s *Store) Append(evt event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	payload, err := event.EncodeEnvelope(evt)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO events (event_type, recorded_at, payload)
		VALUES (?, ?, ?)
	`, evt.Type(), time.Now().UTC().Format(time.RFC3339Nano), payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Handle implements event.Handler by appending the event.
func (s *Store) Handle(_ context.Context, evt event.Event) error {
	return s.Append(evt)
}

// List returns up to limit recorded events of the given type, oldest
// first. An empty eventType lists events of every type.
func (s *Store) List(eventType string, limit int) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `SELECT payload FROM events`
	args := []any{}
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY seq LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event payload: %w", err)
		}
		evt, err := event.DecodeEnvelope(payload)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// Count returns the number of recorded events.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
