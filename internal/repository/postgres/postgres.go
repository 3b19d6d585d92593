package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urbansound/noisemap/internal/domain"
)

// Schema creates the tables used by PostgresRepository
const Schema = `
	CREATE TABLE IF NOT EXISTS noise_events (
		id          BIGSERIAL PRIMARY KEY,
		sound_type  TEXT NOT NULL,
		intensity   DOUBLE PRECISION NOT NULL,
		lat         DOUBLE PRECISION NOT NULL,
		lng         DOUBLE PRECISION NOT NULL,
		timestamp   TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS classification_logs (
		id          UUID PRIMARY KEY,
		filename    TEXT NOT NULL,
		predictions JSONB NOT NULL,
		is_mock     BOOLEAN NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	);
`

// PostgresRepository implements domain.NoiseRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates missing tables
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: failed to migrate: %w", err)
	}
	return nil
}

// ListNoiseEvents retrieves events in insertion order
func (r *PostgresRepository) ListNoiseEvents(ctx context.Context, limit int) ([]domain.NoiseEvent, error) {
	query := `
		SELECT sound_type, intensity, lat, lng, timestamp
		FROM (
			SELECT id, sound_type, intensity, lat, lng, timestamp
			FROM noise_events
			ORDER BY id DESC
			LIMIT NULLIF($1, 0)
		) recent
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query noise events: %w", err)
	}
	defer rows.Close()

	var results []domain.NoiseEvent
	for rows.Next() {
		var e domain.NoiseEvent
		if err := rows.Scan(&e.SoundType, &e.Intensity, &e.Latitude, &e.Longitude, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan noise event row: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate noise events: %w", err)
	}

	return results, nil
}

// SaveNoiseEvent persists a noise event to PostgreSQL
func (r *PostgresRepository) SaveNoiseEvent(ctx context.Context, event domain.NoiseEvent) error {
	query := `
		INSERT INTO noise_events (sound_type, intensity, lat, lng, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		event.SoundType, event.Intensity, event.Latitude, event.Longitude, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save noise event: %w", err)
	}

	return nil
}

// SaveClassificationLog persists a classified upload to PostgreSQL
func (r *PostgresRepository) SaveClassificationLog(ctx context.Context, entry domain.ClassificationLog) error {
	query := `
		INSERT INTO classification_logs (id, filename, predictions, is_mock, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	predictions, err := json.Marshal(entry.Predictions)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode predictions: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		entry.ID, entry.Filename, string(predictions), entry.IsMock, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save classification log: %w", err)
	}

	return nil
}

// CountClassificationLogs returns how many uploads have been logged
func (r *PostgresRepository) CountClassificationLogs(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM classification_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: failed to count classification logs: %w", err)
	}
	return n, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
