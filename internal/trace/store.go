// Package trace persists the event history of a simulation run so it can be
// inspected and replayed after the fact.
//
// Ownership boundary: the store owns its SQLite handle and the run row it
// opened; callers own the events they record.
package trace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/maidsafe/routing-model/routing"
)

var ErrNoRun = errors.New("trace: no run started")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	detail      TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Recorded is one persisted event row.
type Recorded struct {
	Seq        int
	Kind       string
	Detail     string
	RecordedAt time.Time
}

// Store is a SQLite backed event history, one run at a time.
type Store struct {
	db    *sql.DB
	runID string
	seq   int
}

// Open creates or opens the trace database at path. ":memory:" is accepted
// for throwaway stores.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("trace: create database directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("trace: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("trace: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// BeginRun opens a new run row and returns its identifier. Subsequent
// Record calls attach to this run.
func (s *Store) BeginRun(ctx context.Context, label string) (string, error) {
	runID := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, label, started_at) VALUES (?, ?, ?)`,
		runID, label, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("trace: begin run: %w", err)
	}
	s.runID = runID
	s.seq = 0
	log.Debug().Str("run_id", runID).Str("label", label).Msg("trace run started")
	return runID, nil
}

// Record appends one event to the current run.
func (s *Store) Record(ctx context.Context, event routing.Event) error {
	if s.runID == "" {
		return ErrNoRun
	}
	s.seq++
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, seq, kind, detail, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		s.runID, s.seq, event.Kind.String(), event.Describe(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("trace: record event: %w", err)
	}
	return nil
}

// Events returns the recorded rows of a run in sequence order.
func (s *Store) Events(ctx context.Context, runID string) ([]Recorded, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, kind, detail, recorded_at FROM events WHERE run_id = ? ORDER BY seq`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("trace: query events: %w", err)
	}
	defer rows.Close()

	var events []Recorded
	for rows.Next() {
		var row Recorded
		if err := rows.Scan(&row.Seq, &row.Kind, &row.Detail, &row.RecordedAt); err != nil {
			return nil, fmt.Errorf("trace: scan event: %w", err)
		}
		events = append(events, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trace: iterate events: %w", err)
	}
	return events, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("trace: close database: %w", err)
	}
	return nil
}
