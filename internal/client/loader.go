// Package client talks to the noisemap backend: it lists noise events and
// submits audio files for classification.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/urbansound/noisemap/internal/domain"
)

// ErrUnexpectedStatus is returned when the backend answers with a non-2xx
// status and no usable body
var ErrUnexpectedStatus = errors.New("client: unexpected status")

// Loader fetches noise events from the backend listing endpoint
type Loader struct {
	baseURL    string
	httpClient *http.Client
}

// NewLoader creates a new loader for the backend at baseURL
func NewLoader(baseURL string) *Loader {
	return &Loader{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchNoiseEvents performs a single GET of the listing endpoint. No retry.
// Items missing a required field are logged and dropped.
func (l *Loader) FetchNoiseEvents(ctx context.Context) ([]domain.NoiseEvent, error) {
	url := fmt.Sprintf("%s/api/noise-data", l.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("loader: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loader: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loader: %w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var events []domain.NoiseEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("loader: failed to decode response: %w", err)
	}

	valid := events[:0]
	for i, e := range events {
		if err := e.Validate(); err != nil {
			log.Printf("loader: dropping item %d: %v", i, err)
			continue
		}
		valid = append(valid, e)
	}
	if valid == nil {
		valid = []domain.NoiseEvent{}
	}
	return valid, nil
}
