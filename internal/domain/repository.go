package domain

import (
	"context"
	"io"
)

// NoiseRepository defines the interface for noise event persistence
// This follows the Dependency Inversion Principle - domain defines the interface
type NoiseRepository interface {
	// ListNoiseEvents returns stored events in insertion order, at most limit (0 = all)
	ListNoiseEvents(ctx context.Context, limit int) ([]NoiseEvent, error)

	// SaveNoiseEvent persists a single event
	SaveNoiseEvent(ctx context.Context, event NoiseEvent) error

	// SaveClassificationLog persists a classified upload
	SaveClassificationLog(ctx context.Context, entry ClassificationLog) error

	// Health checks database connectivity
	Health(ctx context.Context) error
}

// UploadStore persists uploaded audio files
type UploadStore interface {
	// Save stores the content under filename and returns the public path
	Save(ctx context.Context, filename string, r io.Reader) (string, error)

	// Open returns the stored content of filename
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
}

// ClassificationCounter is implemented by repositories that can count
// logged classifications cheaply
type ClassificationCounter interface {
	CountClassificationLogs(ctx context.Context) (int, error)
}

// EventPublisher forwards noise events and classifications to a stream
type EventPublisher interface {
	PublishNoiseEvent(ctx context.Context, event NoiseEvent) error
	PublishClassification(ctx context.Context, entry ClassificationLog) error
	Close() error
}
