// Package sqlite is the embedded, file-backed noise event repository used
// for local runs without a Postgres server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/urbansound/noisemap/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS noise_events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		sound_type  TEXT NOT NULL,
		intensity   REAL NOT NULL,
		lat         REAL NOT NULL,
		lng         REAL NOT NULL,
		timestamp   TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS classification_logs (
		id          TEXT PRIMARY KEY,
		filename    TEXT NOT NULL,
		predictions TEXT NOT NULL,
		is_mock     INTEGER NOT NULL,
		created_at  TEXT NOT NULL
	);
`

// Repository implements domain.NoiseRepository on a SQLite file
type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a throwaway database.
func Open(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", path, err)
	}

	// One physical connection; SQLite serializes writers anyway and
	// ":memory:" databases are per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to migrate: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close releases the database handle
func (r *Repository) Close() error {
	return r.db.Close()
}

// ListNoiseEvents retrieves events in insertion order
func (r *Repository) ListNoiseEvents(ctx context.Context, limit int) ([]domain.NoiseEvent, error) {
	query := `
		SELECT sound_type, intensity, lat, lng, timestamp FROM (
			SELECT id, sound_type, intensity, lat, lng, timestamp
			FROM noise_events
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query noise events: %w", err)
	}
	defer rows.Close()

	var results []domain.NoiseEvent
	for rows.Next() {
		var (
			e  domain.NoiseEvent
			ts string
		)
		if err := rows.Scan(&e.SoundType, &e.Intensity, &e.Latitude, &e.Longitude, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan noise event row: %w", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("sqlite: bad timestamp %q: %w", ts, err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate noise events: %w", err)
	}

	return results, nil
}

// SaveNoiseEvent persists a noise event
func (r *Repository) SaveNoiseEvent(ctx context.Context, event domain.NoiseEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO noise_events (sound_type, intensity, lat, lng, timestamp) VALUES (?, ?, ?, ?, ?)`,
		event.SoundType, event.Intensity, event.Latitude, event.Longitude, event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save noise event: %w", err)
	}
	return nil
}

// SaveClassificationLog persists a classified upload
func (r *Repository) SaveClassificationLog(ctx context.Context, entry domain.ClassificationLog) error {
	predictions, err := json.Marshal(entry.Predictions)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode predictions: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO classification_logs (id, filename, predictions, is_mock, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Filename, string(predictions), entry.IsMock, entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save classification log: %w", err)
	}
	return nil
}

var _ domain.ClassificationCounter = (*Repository)(nil)

// CountClassificationLogs returns how many uploads have been logged
func (r *Repository) CountClassificationLogs(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classification_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count classification logs: %w", err)
	}
	return n, nil
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}
