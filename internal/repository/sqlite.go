package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS calls (
			call_session_id TEXT PRIMARY KEY,
			caller_id TEXT NOT NULL,
			call_id TEXT NOT NULL,
			session_uri TEXT,
			message_uri TEXT,
			final_status TEXT,
			outcome TEXT NOT NULL,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_started ON calls(started_at)`,
		`CREATE TABLE IF NOT EXISTS call_events (
			event_id TEXT PRIMARY KEY,
			call_session_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (call_session_id) REFERENCES calls(call_session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_call_events_call ON call_events(call_session_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateCall creates a new call row.
func (s *SQLiteStore) CreateCall(ctx context.Context, call *domain.Call) error {
	outcome := call.Outcome
	if outcome == "" {
		outcome = domain.CallOutcomeInProgress
	}
	startedAt := call.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calls (call_session_id, caller_id, call_id, outcome, started_at) VALUES (?, ?, ?, ?, ?)`,
		call.CallSessionID, call.CallerID, call.CallID, outcome, startedAt)
	return err
}

// GetCall retrieves a call by its call session ID.
func (s *SQLiteStore) GetCall(ctx context.Context, callSessionID string) (*domain.Call, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT call_session_id, caller_id, call_id, session_uri, message_uri, final_status, outcome, started_at, ended_at
		 FROM calls WHERE call_session_id = ?`, callSessionID)
	call, err := scanCall(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return call, nil
}

// ListCalls returns the most recent calls first.
func (s *SQLiteStore) ListCalls(ctx context.Context, limit int) ([]domain.Call, error) {
	query := `SELECT call_session_id, caller_id, call_id, session_uri, message_uri, final_status, outcome, started_at, ended_at
		FROM calls ORDER BY started_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, *call)
	}
	return calls, rows.Err()
}

// AttachSession records the remote session of a call.
func (s *SQLiteStore) AttachSession(ctx context.Context, callSessionID, sessionURI, messageURI string) error {
	var msg sql.NullString
	if messageURI != "" {
		msg = sql.NullString{String: messageURI, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE calls SET session_uri = ?, message_uri = ? WHERE call_session_id = ?`,
		sessionURI, msg, callSessionID)
	return err
}

// CompleteCall marks a call as ended.
func (s *SQLiteStore) CompleteCall(ctx context.Context, callSessionID string, outcome domain.CallOutcome, finalStatus domain.SessionStatus) error {
	var status sql.NullString
	if finalStatus != "" {
		status = sql.NullString{String: string(finalStatus), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE calls SET outcome = ?, final_status = ?, ended_at = ? WHERE call_session_id = ?`,
		outcome, status, time.Now(), callSessionID)
	return err
}

// CreateEvent creates a new call event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.CallEvent) error {
	payload := ""
	if event.Payload != nil {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_events (event_id, call_session_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.CallSessionID, event.Ts, event.Type, payload)
	return err
}

// GetEvents retrieves events for a call.
func (s *SQLiteStore) GetEvents(ctx context.Context, callSessionID string, afterTs int64, types []string, limit int) ([]domain.CallEvent, error) {
	query := `SELECT event_id, call_session_id, ts, type, payload FROM call_events WHERE call_session_id = ?`
	args := []interface{}{callSessionID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += ` AND type IN (` + strings.Join(placeholders, ",") + `)`
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.CallEvent
	for rows.Next() {
		var event domain.CallEvent
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.CallSessionID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			event.Payload = []byte(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCall(row rowScanner) (*domain.Call, error) {
	var call domain.Call
	var sessionURI, messageURI, finalStatus sql.NullString
	var endedAt sql.NullTime
	if err := row.Scan(&call.CallSessionID, &call.CallerID, &call.CallID, &sessionURI, &messageURI,
		&finalStatus, &call.Outcome, &call.StartedAt, &endedAt); err != nil {
		return nil, err
	}
	if sessionURI.Valid {
		call.SessionURI = sessionURI.String
	}
	if messageURI.Valid {
		call.MessageURI = messageURI.String
	}
	if finalStatus.Valid {
		call.FinalStatus = domain.SessionStatus(finalStatus.String)
	}
	if endedAt.Valid {
		call.EndedAt = &endedAt.Time
	}
	return &call, nil
}
