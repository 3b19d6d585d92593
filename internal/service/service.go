package service

import (
	"github.com/urbansound/noisemap/internal/domain"
)

// Re-exported from domain for convenience
type (
	NoiseRepository       = domain.NoiseRepository
	UploadStore           = domain.UploadStore
	EventPublisher        = domain.EventPublisher
	ClassificationCounter = domain.ClassificationCounter
)
