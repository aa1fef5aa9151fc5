// Package state persists terminal session records to SQLite so results
// stay queryable after the in-memory registry evicts them.
package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/docpanel-ai/docpanel/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore implements core.SessionStore with SQLite storage.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	mu     sync.RWMutex
}

// NewSQLiteStore opens (or creates) the session history database at dbPath
// and applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	s := &SQLiteStore{dbPath: dbPath}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	// WAL mode for concurrent readers while a worker persists.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, run initial migration
		version = 0
	}

	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}

	return nil
}

// SaveTerminal upserts a terminal session record. The full record is stored
// as JSON; a few columns are denormalized for listing without unmarshaling.
func (s *SQLiteStore) SaveTerminal(ctx context.Context, rec *core.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling session record: %w", err)
	}

	answered, total := 0, 0
	if rec.Report != nil {
		answered = rec.Report.Answered
		total = rec.Report.Total
	}

	var completedAt any
	if rec.View.CompletedAt != nil {
		completedAt = rec.View.CompletedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, status, document_name, question_set, answered, total, created_at, completed_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			answered = excluded.answered,
			total = excluded.total,
			completed_at = excluded.completed_at,
			record = excluded.record`,
		string(rec.View.ID),
		string(rec.View.Status),
		rec.View.DocumentName,
		rec.View.QuestionSet,
		answered,
		total,
		rec.View.CreatedAt.UTC().Format(time.RFC3339Nano),
		completedAt,
		string(recordJSON),
	)
	if err != nil {
		return core.ErrInternal(core.CodeStoreFailed,
			fmt.Sprintf("saving session %s", rec.View.ID)).WithCause(err)
	}
	return nil
}

// Get returns the record for a persisted session.
func (s *SQLiteStore) Get(ctx context.Context, id core.SessionID) (*core.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recordJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT record FROM sessions WHERE id = ?", string(id)).Scan(&recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound(core.CodeSessionNotFound, "session not found: "+string(id))
	}
	if err != nil {
		return nil, core.ErrInternal(core.CodeStoreFailed,
			fmt.Sprintf("querying session %s", id)).WithCause(err)
	}

	var rec core.SessionRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling session %s: %w", id, err)
	}
	return &rec, nil
}

// List returns persisted sessions, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*core.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT record FROM sessions ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, core.ErrInternal(core.CodeStoreFailed, "listing sessions").WithCause(err)
	}
	defer func() { _ = rows.Close() }()

	var recs []*core.SessionRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		var rec core.SessionRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling session record: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return recs, nil
}
