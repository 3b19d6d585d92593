package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/urbansound/noisemap/internal/domain"
)

// NoiseService serves and ingests noise events
type NoiseService struct {
	repo      NoiseRepository
	publisher EventPublisher

	wgBg sync.WaitGroup // tracks background goroutines for graceful shutdown
}

// NewNoiseService creates a new noise service. publisher may be nil.
func NewNoiseService(repo NoiseRepository, publisher EventPublisher) *NoiseService {
	return &NoiseService{
		repo:      repo,
		publisher: publisher,
	}
}

// WaitBackground blocks until all background publish goroutines complete.
// Call during graceful shutdown to avoid dropped messages.
func (s *NoiseService) WaitBackground() {
	s.wgBg.Wait()
}

// ListEvents returns stored events in insertion order
func (s *NoiseService) ListEvents(ctx context.Context, limit int) ([]domain.NoiseEvent, error) {
	events, err := s.repo.ListNoiseEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("noise: failed to list events: %w", err)
	}
	if events == nil {
		events = []domain.NoiseEvent{}
	}
	return events, nil
}

// IngestEvent validates and persists an event, then publishes it in the
// background
func (s *NoiseService) IngestEvent(ctx context.Context, event domain.NoiseEvent) (domain.NoiseEvent, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		return domain.NoiseEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if err := s.repo.SaveNoiseEvent(ctx, event); err != nil {
		return domain.NoiseEvent{}, fmt.Errorf("noise: failed to save event: %w", err)
	}

	if s.publisher != nil {
		s.wgBg.Add(1)
		go func() {
			defer s.wgBg.Done()
			bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.publisher.PublishNoiseEvent(bgCtx, event); err != nil {
				log.Printf("Failed to publish noise event: %v", err)
			}
		}()
	}

	return event, nil
}

// Stats summarizes what the repository holds. Classifications is nil when
// the repository cannot count them.
type Stats struct {
	Events          int  `json:"events"`
	Classifications *int `json:"classifications"`
}

// Stats counts stored events and, where supported, logged classifications
func (s *NoiseService) Stats(ctx context.Context) (Stats, error) {
	events, err := s.repo.ListNoiseEvents(ctx, 0)
	if err != nil {
		return Stats{}, fmt.Errorf("noise: failed to count events: %w", err)
	}
	stats := Stats{Events: len(events)}

	if counter, ok := s.repo.(ClassificationCounter); ok {
		n, err := counter.CountClassificationLogs(ctx)
		if err != nil {
			return Stats{}, fmt.Errorf("noise: failed to count classifications: %w", err)
		}
		stats.Classifications = &n
	}
	return stats, nil
}

// Health checks the repository
func (s *NoiseService) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}
