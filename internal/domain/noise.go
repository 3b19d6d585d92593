package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// NoiseEvent represents one observed or classified noise occurrence
type NoiseEvent struct {
	SoundType string    `json:"sound_type"`
	Intensity float64   `json:"intensity"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate reports whether all fields of the event are populated.
// Intensity is not range-checked; out-of-range values only scale visuals.
func (e NoiseEvent) Validate() error {
	if e.SoundType == "" {
		return fmt.Errorf("noise event: sound_type is required")
	}
	if e.Latitude < -90 || e.Latitude > 90 {
		return fmt.Errorf("noise event: latitude %f out of range", e.Latitude)
	}
	if e.Longitude < -180 || e.Longitude > 180 {
		return fmt.Errorf("noise event: longitude %f out of range", e.Longitude)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("noise event: timestamp is required")
	}
	return nil
}

// Prediction is a single classifier output: class index and confidence.
// It travels on the wire as a two-element array.
type Prediction struct {
	ClassIndex int
	Confidence float64
}

// Label returns the taxonomy label for the prediction's class index
func (p Prediction) Label() string {
	return SoundLabel(p.ClassIndex)
}

// MarshalJSON encodes the prediction as [classIndex, confidence]
func (p Prediction) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(p.ClassIndex), p.Confidence})
}

// UnmarshalJSON decodes a [classIndex, confidence] pair
func (p *Prediction) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("prediction: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("prediction: expected [index, confidence], got %d values", len(pair))
	}
	if pair[0] != math.Trunc(pair[0]) || pair[0] < 0 || pair[0] > math.MaxInt32 {
		return fmt.Errorf("prediction: class index %v is not a non-negative integer", pair[0])
	}
	p.ClassIndex = int(pair[0])
	p.Confidence = pair[1]
	return nil
}

// ClassificationResult is the response of the upload/classification endpoint
type ClassificationResult struct {
	Success     bool         `json:"success"`
	Predictions []Prediction `json:"predictions,omitempty"`
	Filename    string       `json:"filename,omitempty"`
	Error       string       `json:"error,omitempty"`
	IsMock      bool         `json:"is_mock,omitempty"`
}

// Top returns the highest ranked prediction, if any
func (r ClassificationResult) Top() (Prediction, bool) {
	if len(r.Predictions) == 0 {
		return Prediction{}, false
	}
	return r.Predictions[0], true
}

// ClassificationLog records one classified upload
type ClassificationLog struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	Predictions []Prediction `json:"predictions"`
	IsMock      bool         `json:"is_mock"`
	CreatedAt   time.Time    `json:"created_at"`
}

// LatLng is a WGS84 coordinate pair
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Default map view (Midtown Manhattan)
const (
	DefaultCenterLat = 40.7589
	DefaultCenterLng = -73.9851
	DefaultZoom      = 12
)
