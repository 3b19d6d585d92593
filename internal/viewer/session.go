// Package viewer holds the presentation-layer session: one store, one
// renderer and one info panel, fed by the backend through the loader and
// the upload flow.
package viewer

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/urbansound/noisemap/internal/domain"
	"github.com/urbansound/noisemap/internal/mapview"
)

// UploadPathPrefix is where the backend serves uploaded audio
const UploadPathPrefix = "/static/uploads/"

// maxAlerts bounds the alert history kept for the shell
const maxAlerts = 20

// EventFetcher lists noise events from the backend
type EventFetcher interface {
	FetchNoiseEvents(ctx context.Context) ([]domain.NoiseEvent, error)
}

// AudioClassifier submits audio for classification
type AudioClassifier interface {
	ClassifyAudio(ctx context.Context, filename string, r io.Reader) (domain.ClassificationResult, error)
}

// Alerter surfaces a blocking, user-facing message
type Alerter interface {
	Alert(message string)
}

// ResultItem is one line of the classification results list
type ResultItem struct {
	SoundType  string `json:"sound_type"`
	Label      string `json:"label"`
	Confidence string `json:"confidence"`
}

// UploadOutcome is what the shell shows after an upload
type UploadOutcome struct {
	Success     bool               `json:"success"`
	Results     []ResultItem       `json:"results,omitempty"`
	AudioSource string             `json:"audio_source,omitempty"`
	Event       *domain.NoiseEvent `json:"event,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Session is the owned context of the presentation layer
type Session struct {
	Store    *mapview.Store
	Renderer *mapview.Renderer
	Panel    *mapview.InfoPanel

	fetcher    EventFetcher
	classifier AudioClassifier
	alerter    Alerter
	now        func() time.Time

	mu          sync.Mutex
	audioSource string
}

// NewSession wires the store, renderer and info panel together
func NewSession(cfg mapview.Config, panel *mapview.InfoPanel, fetcher EventFetcher, classifier AudioClassifier, alerter Alerter) *Session {
	store := mapview.NewStore()
	renderer := mapview.NewRenderer(cfg, store)
	renderer.OnEventSelected(func(e domain.NoiseEvent) {
		panel.Show(e)
	})

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Session{
		Store:      store,
		Renderer:   renderer,
		Panel:      panel,
		fetcher:    fetcher,
		classifier: classifier,
		alerter:    alerter,
		now:        now,
	}
}

// Load fetches events and replaces the store. On failure it logs and leaves
// the store unchanged.
func (s *Session) Load(ctx context.Context) error {
	events, err := s.fetcher.FetchNoiseEvents(ctx)
	if err != nil {
		log.Printf("Error loading noise data: %v", err)
		return err
	}

	s.Store.ReplaceAll(events)
	log.Printf("Loaded %d noise events", len(events))
	return nil
}

// Click routes a map click: a hit on a marker selects it, anything else
// synthesizes a new event at the clicked point.
func (s *Session) Click(lat, lng float64) (selected bool, event domain.NoiseEvent) {
	if idx, ok := s.Renderer.HitTest(lat, lng); ok {
		if e, ok := s.Renderer.SelectMarker(idx); ok {
			return true, e
		}
	}
	return false, s.Renderer.HandleMapClick(lat, lng)
}

// HandleUpload runs the upload flow: classify, then either alert or append
// the top prediction at the viewport center.
func (s *Session) HandleUpload(ctx context.Context, filename string, r io.Reader) UploadOutcome {
	result, err := s.classifier.ClassifyAudio(ctx, filename, r)
	if err != nil {
		msg := fmt.Sprintf("Error uploading file: %v", err)
		s.alerter.Alert(msg)
		return UploadOutcome{Error: msg}
	}

	if !result.Success {
		msg := "Error: " + result.Error
		s.alerter.Alert(msg)
		return UploadOutcome{Error: msg}
	}

	outcome := UploadOutcome{
		Success:     true,
		Results:     s.resultItems(result.Predictions),
		AudioSource: UploadPathPrefix + result.Filename,
	}

	s.mu.Lock()
	s.audioSource = outcome.AudioSource
	s.mu.Unlock()

	top, ok := result.Top()
	if !ok {
		return outcome
	}

	center := s.Renderer.Viewport().Center
	event := domain.NoiseEvent{
		SoundType: top.Label(),
		Intensity: top.Confidence,
		Latitude:  center.Lat,
		Longitude: center.Lng,
		Timestamp: s.now().UTC(),
	}
	s.Store.Append(event)
	outcome.Event = &event

	return outcome
}

// AudioSource returns the player source set by the last successful upload
func (s *Session) AudioSource() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioSource
}

func (s *Session) resultItems(predictions []domain.Prediction) []ResultItem {
	items := make([]ResultItem, 0, len(predictions))
	for _, p := range predictions {
		label := p.Label()
		items = append(items, ResultItem{
			SoundType:  label,
			Label:      s.Panel.FormatLabel(label),
			Confidence: s.Panel.FormatPercent(p.Confidence) + " confidence",
		})
	}
	return items
}

// AlertLog keeps recent alerts so the shell can display them
type AlertLog struct {
	mu     sync.Mutex
	alerts []string
}

// Alert records the message and logs it
func (a *AlertLog) Alert(message string) {
	log.Printf("Alert: %s", message)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, message)
	if len(a.alerts) > maxAlerts {
		a.alerts = a.alerts[len(a.alerts)-maxAlerts:]
	}
}

// Drain returns and clears the pending alerts
func (a *AlertLog) Drain() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.alerts
	a.alerts = nil
	if out == nil {
		out = []string{}
	}
	return out
}
