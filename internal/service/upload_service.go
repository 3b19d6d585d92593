package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/urbansound/noisemap/internal/domain"
)

var (
	ErrNoFile          = errors.New("upload: no selected file")
	ErrInvalidFileType = errors.New("upload: invalid file type")
	ErrInvalidEvent    = errors.New("invalid noise event")
)

// DefaultAllowedExtensions are the audio formats the classifier accepts
var DefaultAllowedExtensions = []string{"wav", "mp3", "flac", "ogg"}

// Classifier produces ranked predictions for an audio file
type Classifier interface {
	Classify(ctx context.Context, filename string, audio []byte, k int) ([]domain.Prediction, bool, error)
}

// UploadService stores uploaded audio and classifies it
type UploadService struct {
	store      UploadStore
	classifier Classifier
	repo       NoiseRepository
	publisher  EventPublisher
	allowed    map[string]bool

	wgBg sync.WaitGroup
}

// NewUploadService creates a new upload service. publisher may be nil.
func NewUploadService(store UploadStore, classifier Classifier, repo NoiseRepository, publisher EventPublisher, allowedExtensions []string) *UploadService {
	if len(allowedExtensions) == 0 {
		allowedExtensions = DefaultAllowedExtensions
	}
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &UploadService{
		store:      store,
		classifier: classifier,
		repo:       repo,
		publisher:  publisher,
		allowed:    allowed,
	}
}

// WaitBackground blocks until background log writes complete
func (s *UploadService) WaitBackground() {
	s.wgBg.Wait()
}

// AllowedFile reports whether filename has an accepted audio extension
func (s *UploadService) AllowedFile(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return ext != "" && s.allowed[strings.ToLower(ext)]
}

// Process saves the upload, classifies it and returns the top predictions
func (s *UploadService) Process(ctx context.Context, filename string, audio []byte) (domain.ClassificationResult, error) {
	if filename == "" {
		return domain.ClassificationResult{}, ErrNoFile
	}
	if !s.AllowedFile(filename) {
		return domain.ClassificationResult{}, ErrInvalidFileType
	}

	name := SecureFilename(filename)
	if name == "" || !s.AllowedFile(name) {
		return domain.ClassificationResult{}, ErrInvalidFileType
	}

	if _, err := s.store.Save(ctx, name, bytes.NewReader(audio)); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("upload: failed to store %s: %w", name, err)
	}

	predictions, isMock, err := s.classifier.Classify(ctx, name, audio, DefaultTopK)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("upload: failed to classify %s: %w", name, err)
	}

	entry := domain.ClassificationLog{
		ID:          uuid.NewString(),
		Filename:    name,
		Predictions: predictions,
		IsMock:      isMock,
		CreatedAt:   time.Now().UTC(),
	}

	// Log classification to database asynchronously
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveClassificationLog(bgCtx, entry); err != nil {
			log.Printf("Failed to save classification log: %v", err)
		}
		if s.publisher != nil {
			if err := s.publisher.PublishClassification(bgCtx, entry); err != nil {
				log.Printf("Failed to publish classification: %v", err)
			}
		}
	}()

	return domain.ClassificationResult{
		Success:     true,
		Predictions: predictions,
		Filename:    name,
		IsMock:      isMock,
	}, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client-supplied name to a safe basename
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	parts := strings.Split(name, "/")
	name = parts[len(parts)-1]
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.TrimLeft(name, "._")
}
