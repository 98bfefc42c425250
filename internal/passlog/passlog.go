// Package passlog persists an append-only history of execution passes in
// SQLite, so pass outcomes survive process restarts and can be inspected
// after the fact.
package passlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/conveyor/internal/engine"
)

// Record is one persisted pass outcome.
type Record struct {
	ID        int64
	PassID    string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   string
	Documents int
	Failed    []string
	Skipped   []string
	Error     string
}

// Outcome labels stored in the outcome column.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
)

// SQLiteStore is an append-only pass log backed by SQLite. Use ":memory:"
// for tests, a file path for persistence.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pass_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		documents INTEGER NOT NULL,
		failed TEXT,
		skipped TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_pass_id ON passes(pass_id);
	CREATE INDEX IF NOT EXISTS idx_started_at ON passes(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores one pass record.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	failed, err := marshalNames(rec.Failed)
	if err != nil {
		return err
	}
	skipped, err := marshalNames(rec.Skipped)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO passes (pass_id, started_at, duration_ms, outcome, documents, failed, skipped, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		rec.PassID, rec.StartedAt.Unix(), rec.Duration.Milliseconds(), rec.Outcome, rec.Documents, failed, skipped, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert pass record: %w", err)
	}
	return nil
}

// RecordResult derives a Record from an engine result and appends it.
func (s *SQLiteStore) RecordResult(ctx context.Context, result *engine.Result, passErr error) error {
	rec := Record{
		PassID:    result.PassID,
		StartedAt: result.StartedAt,
		Duration:  result.Duration,
		Documents: 0,
		Failed:    result.Failed(),
		Skipped:   result.Skipped(),
	}
	for _, docs := range result.Documents() {
		rec.Documents += len(docs)
	}
	switch {
	case result.Canceled:
		rec.Outcome = OutcomeCanceled
	case result.Succeeded():
		rec.Outcome = OutcomeSucceeded
	default:
		rec.Outcome = OutcomeFailed
	}
	if passErr != nil {
		rec.Error = passErr.Error()
	}
	return s.Append(ctx, rec)
}

// Recent returns up to limit records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, pass_id, started_at, duration_ms, outcome, documents, failed, skipped, error FROM passes ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pass records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ByPassID returns the records for one pass ID.
func (s *SQLiteStore) ByPassID(ctx context.Context, passID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, pass_id, started_at, duration_ms, outcome, documents, failed, skipped, error FROM passes WHERE pass_id = ? ORDER BY id",
		passID,
	)
	if err != nil {
		return nil, fmt.Errorf("query pass records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var startedAt, durationMS int64
		var failed, skipped sql.NullString
		if err := rows.Scan(&rec.ID, &rec.PassID, &startedAt, &durationMS, &rec.Outcome, &rec.Documents, &failed, &skipped, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan pass record: %w", err)
		}
		rec.StartedAt = time.Unix(startedAt, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		var err error
		if rec.Failed, err = unmarshalNames(failed); err != nil {
			return nil, err
		}
		if rec.Skipped, err = unmarshalNames(skipped); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func marshalNames(names []string) (sql.NullString, error) {
	if len(names) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(names)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal pipeline names: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalNames(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(s.String), &names); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline names: %w", err)
	}
	return names, nil
}
