package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/urbansound/noisemap/internal/domain"
)

// MockRepository implements domain.NoiseRepository in memory for demo mode.
// It starts with two sample events around Midtown Manhattan.
type MockRepository struct {
	mu     sync.Mutex
	events []domain.NoiseEvent
	logs   []domain.ClassificationLog
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		events: []domain.NoiseEvent{
			{
				SoundType: "siren",
				Intensity: 0.8,
				Latitude:  40.7589,
				Longitude: -73.9851,
				Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			},
			{
				SoundType: "drilling",
				Intensity: 0.9,
				Latitude:  40.7505,
				Longitude: -73.9934,
				Timestamp: time.Date(2024, 1, 15, 11, 15, 0, 0, time.UTC),
			},
		},
	}
}

// ListNoiseEvents returns the in-memory events
func (r *MockRepository) ListNoiseEvents(ctx context.Context, limit int) ([]domain.NoiseEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.events
	if limit > 0 && limit < len(events) {
		events = events[len(events)-limit:]
	}
	return append([]domain.NoiseEvent{}, events...), nil
}

// SaveNoiseEvent appends the event in memory
func (r *MockRepository) SaveNoiseEvent(ctx context.Context, event domain.NoiseEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// SaveClassificationLog keeps the entry in memory
func (r *MockRepository) SaveClassificationLog(ctx context.Context, entry domain.ClassificationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, entry)
	return nil
}

// ClassificationLogs returns the entries saved so far
func (r *MockRepository) ClassificationLogs() []domain.ClassificationLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ClassificationLog{}, r.logs...)
}

// CountClassificationLogs returns how many entries were saved
func (r *MockRepository) CountClassificationLogs(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logs), nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
