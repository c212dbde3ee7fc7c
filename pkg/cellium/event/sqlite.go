package event

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists failed deliveries to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteStore creates a new SQLite dead letter store.
// The path should be a file path (e.g., "./deadletter.db") or ":memory:"
// for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
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
		CREATE TABLE IF NOT EXISTS failed_deliveries (
			id TEXT PRIMARY KEY,
			event TEXT NOT NULL,
			subscriber TEXT NOT NULL,
			payload BLOB,
			error_message TEXT NOT NULL,
			occurred_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_failed_deliveries_event
		ON failed_deliveries(event)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Record implements Store.
func (s *SQLiteStore) Record(ctx context.Context, failed *FailedDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO failed_deliveries (id, event, subscriber, payload, error_message, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, failed.ID, failed.Event, failed.Subscriber, failed.Payload,
		failed.ErrorMessage, failed.OccurredAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert failed delivery: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*FailedDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event, subscriber, payload, error_message, occurred_at
		FROM failed_deliveries
		ORDER BY occurred_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed deliveries: %w", err)
	}
	defer rows.Close()

	var out []*FailedDelivery
	for rows.Next() {
		var rec FailedDelivery
		var occurredAt string
		if err := rows.Scan(&rec.ID, &rec.Event, &rec.Subscriber, &rec.Payload,
			&rec.ErrorMessage, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan failed delivery: %w", err)
		}
		rec.OccurredAt = parseTime(occurredAt)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Acknowledge implements Store.
func (s *SQLiteStore) Acknowledge(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM failed_deliveries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete failed delivery: %w", err)
	}
	return nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM failed_deliveries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed deliveries: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
