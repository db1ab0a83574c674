// Package riskevents keeps an append-only log of risk decisions and state
// transitions, so every halt can be traced back to the check that caused it.
package riskevents

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/devvrat-hans/algo-trading-bot/internal/gateway/notifier"
)

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("risk event db path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS risk_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_risk_events_ts ON risk_events(ts);
`); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Publish implements notifier.Notifier so the store can sit in the event
// fanout alongside the presentation sinks.
func (s *Store) Publish(evt notifier.Event) {
	if evt.Kind == notifier.EventTickSummary {
		return
	}
	_ = s.Append(context.Background(), evt)
}

func (s *Store) Append(ctx context.Context, evt notifier.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO risk_events (ts, kind, payload) VALUES (?, ?, ?)`,
		ts.Unix(), string(evt.Kind), string(payload))
	return err
}

func (s *Store) Recent(ctx context.Context, limit int) ([]notifier.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM risk_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notifier.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var evt notifier.Event
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			continue
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
