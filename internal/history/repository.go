package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	// timeFormat is fixed width so recorded_at sorts lexically.
	timeFormat = "2006-01-02T15:04:05.000000Z07:00"
)

// SQLiteRepository implements Repository on the masquerade_history table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts an entry. A zero RecordedAt is set to now.
func (r *SQLiteRepository) Record(ctx context.Context, e Entry) error {
	if e.DeviceID == 0 || e.Event == "" {
		return fmt.Errorf("%w: device id and event are required", ErrInvalidEntry)
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}

	value, err := json.Marshal(e.Value)
	if err != nil {
		return fmt.Errorf("marshalling value: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO masquerade_history
		 (device_id, event, state_key, value, display_text, correlation_id, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.DeviceID,
		e.Event,
		e.Key,
		string(value),
		e.DisplayText,
		e.CorrelationID,
		e.RecordedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// List returns the newest entries for a device, newest first.
// limit defaults to 50 and is capped at 500.
func (r *SQLiteRepository) List(ctx context.Context, deviceID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, event, state_key, value, display_text, correlation_id, recorded_at
		 FROM masquerade_history
		 WHERE device_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var value, recordedAt string
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Event, &e.Key, &value, &e.DisplayText, &e.CorrelationID, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		if err := json.Unmarshal([]byte(value), &e.Value); err != nil {
			return nil, fmt.Errorf("unmarshalling value: %w", err)
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("parsing recorded_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries recorded before now-olderThan and returns how many
// were removed.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(timeFormat)
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM masquerade_history WHERE recorded_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting history: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
