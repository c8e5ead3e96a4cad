package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Checkpoint is the last cursor delivered for a named stream, used to
// resume with --after-cursor.
type Checkpoint struct {
	Key       string
	Cursor    string
	UpdatedAt time.Time
}

// SaveCursor records cursor as the latest position for key. An empty
// cursor is ignored so a stream that produced nothing keeps its old position.
func (d *DB) SaveCursor(key, cursor string, ts time.Time) error {
	if cursor == "" {
		return nil
	}
	_, err := d.db.Exec(`
		INSERT INTO checkpoints (key, cursor, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET cursor = excluded.cursor, updated_at = excluded.updated_at`,
		key, cursor, formatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint %q: %w", key, err)
	}

	slog.Debug("checkpoint saved", "key", key, "cursor", cursor)
	return nil
}

// LastCursor returns the checkpoint for key. ok is false when none exists.
func (d *DB) LastCursor(key string) (cp Checkpoint, ok bool, err error) {
	var updated string
	err = d.db.QueryRow(`SELECT key, cursor, updated_at FROM checkpoints WHERE key = ?`, key).
		Scan(&cp.Key, &cp.Cursor, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("reading checkpoint %q: %w", key, err)
	}
	cp.UpdatedAt = parseTime(updated)
	return cp, true, nil
}
