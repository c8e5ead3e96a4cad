// Package store provides SQLite-backed session history and cursor
// checkpoints. Journal records themselves are never stored.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/setevik/journalstream/internal/session"
)

// DB wraps an SQLite connection for session storage.
type DB struct {
	db *sql.DB
}

// Open opens or creates an SQLite database at the given path.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single writer connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Insert stores a new session.
func (d *DB) Insert(sess *session.Session) error {
	snap := sess.Snapshot()
	argsJSON, err := json.Marshal(snap.Args)
	if err != nil {
		argsJSON = []byte("[]")
	}

	_, err = d.db.Exec(`
		INSERT INTO sessions (id, instance_id, started_at, ended_at, executable, args_json, records, decode_errors, last_cursor, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID,
		snap.InstanceID,
		formatTime(snap.StartedAt),
		formatTime(snap.EndedAt),
		snap.Executable,
		string(argsJSON),
		snap.Records,
		snap.DecodeErrors,
		snap.LastCursor,
		string(snap.Outcome),
		snap.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Update writes the counters and outcome of an existing session.
func (d *DB) Update(sess *session.Session) error {
	snap := sess.Snapshot()
	result, err := d.db.Exec(`
		UPDATE sessions
		SET ended_at = ?, records = ?, decode_errors = ?, last_cursor = ?, outcome = ?, error = ?
		WHERE id = ?`,
		formatTime(snap.EndedAt),
		snap.Records,
		snap.DecodeErrors,
		snap.LastCursor,
		string(snap.Outcome),
		snap.Error,
		snap.ID,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("updating session %s: not found", snap.ID)
	}
	return nil
}

// QueryFilter controls which sessions are returned by Query.
type QueryFilter struct {
	Since      time.Time
	Until      time.Time
	InstanceID string
	Outcome    session.Outcome
	Limit      int
}

// Query returns sessions matching the filter, most recent first.
func (d *DB) Query(f QueryFilter) ([]*session.Session, error) {
	query := `SELECT id, instance_id, started_at, ended_at, executable, args_json, records, decode_errors, last_cursor, outcome, error
		FROM sessions WHERE 1=1`
	var args []interface{}

	if !f.Since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, formatTime(f.Since))
	}
	if !f.Until.IsZero() {
		query += " AND started_at <= ?"
		args = append(args, formatTime(f.Until))
	}
	if f.InstanceID != "" {
		query += " AND instance_id = ?"
		args = append(args, f.InstanceID)
	}
	if f.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, string(f.Outcome))
	}

	query += " ORDER BY started_at DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Count returns the total number of stored sessions.
func (d *DB) Count() (int, error) {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return n, nil
}

// Purge deletes sessions that started before the retention window.
func (d *DB) Purge(retention time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-retention))
	result, err := d.db.Exec(`DELETE FROM sessions WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging old sessions: %w", err)
	}
	return result.RowsAffected()
}

func scanSession(rows *sql.Rows) (*session.Session, error) {
	var sess session.Session
	var startedStr, endedStr, argsJSON, outcome string
	var lastCursor, errText sql.NullString

	err := rows.Scan(
		&sess.ID,
		&sess.InstanceID,
		&startedStr,
		&endedStr,
		&sess.Executable,
		&argsJSON,
		&sess.Records,
		&sess.DecodeErrors,
		&lastCursor,
		&outcome,
		&errText,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning session row: %w", err)
	}

	sess.StartedAt = parseTime(startedStr)
	sess.EndedAt = parseTime(endedStr)
	sess.LastCursor = lastCursor.String
	sess.Outcome = session.Outcome(outcome)
	sess.Error = errText.String
	if argsJSON != "" {
		_ = json.Unmarshal([]byte(argsJSON), &sess.Args)
	}

	return &sess, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id            TEXT PRIMARY KEY,
			instance_id   TEXT NOT NULL,
			started_at    TEXT NOT NULL,
			ended_at      TEXT NOT NULL DEFAULT '',
			executable    TEXT NOT NULL,
			args_json     TEXT,
			records       INTEGER NOT NULL DEFAULT 0,
			decode_errors INTEGER NOT NULL DEFAULT 0,
			last_cursor   TEXT,
			outcome       TEXT NOT NULL,
			error         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_instance_started ON sessions(instance_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			key        TEXT PRIMARY KEY,
			cursor     TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Debug("database schema up to date")
	return nil
}
