package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteOffsetStore implements OffsetStore using SQLite
// This provides persistent storage of polling offsets across restarts
type SQLiteOffsetStore struct {
	db *sql.DB
}

// NewSQLiteOffsetStore creates a new SQLite-based offset store
// The dbPath parameter specifies the path to the SQLite database file
func NewSQLiteOffsetStore(dbPath string) (*SQLiteOffsetStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	store := &SQLiteOffsetStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables if they don't exist
func (s *SQLiteOffsetStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS history_offsets (
			zone_key TEXT PRIMARY KEY,
			last_history_time TEXT,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS snapshot_offsets (
			device_id TEXT PRIMARY KEY,
			last_snapshot_time TEXT,
			updated_at TEXT NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}

// GetLastHistoryTime returns the last history import time for a device:zone pair
func (s *SQLiteOffsetStore) GetLastHistoryTime(ctx context.Context, key string) (time.Time, error) {
	query := `SELECT last_history_time FROM history_offsets WHERE zone_key = ?`
	return s.queryTime(ctx, query, key)
}

// SetLastHistoryTime sets the last history import time for a device:zone pair
func (s *SQLiteOffsetStore) SetLastHistoryTime(ctx context.Context, key string, timestamp time.Time) error {
	query := `
		INSERT INTO history_offsets (zone_key, last_history_time, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(zone_key) DO UPDATE SET
			last_history_time = excluded.last_history_time,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, key, timestamp.Format(time.RFC3339), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("setting last history time: %w", err)
	}

	return nil
}

// GetLastSnapshotTime returns the last snapshot timestamp for a device
func (s *SQLiteOffsetStore) GetLastSnapshotTime(ctx context.Context, deviceID string) (time.Time, error) {
	query := `SELECT last_snapshot_time FROM snapshot_offsets WHERE device_id = ?`
	return s.queryTime(ctx, query, deviceID)
}

// SetLastSnapshotTime sets the last snapshot timestamp for a device
func (s *SQLiteOffsetStore) SetLastSnapshotTime(ctx context.Context, deviceID string, timestamp time.Time) error {
	query := `
		INSERT INTO snapshot_offsets (device_id, last_snapshot_time, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			last_snapshot_time = excluded.last_snapshot_time,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, deviceID, timestamp.Format(time.RFC3339), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("setting last snapshot time: %w", err)
	}

	return nil
}

// queryTime runs a single-column timestamp lookup, mapping missing rows
// and NULLs to the zero time
func (s *SQLiteOffsetStore) queryTime(ctx context.Context, query, arg string) (time.Time, error) {
	var timeStr sql.NullString

	err := s.db.QueryRowContext(ctx, query, arg).Scan(&timeStr)
	if err == sql.ErrNoRows {
		return time.Time{}, nil // Return zero time if not found
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("querying offset: %w", err)
	}

	if !timeStr.Valid || timeStr.String == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, timeStr.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp: %w", err)
	}

	return t, nil
}

// Close closes the database connection
func (s *SQLiteOffsetStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
