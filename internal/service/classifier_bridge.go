package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/urbansound/noisemap/internal/domain"
	"github.com/urbansound/noisemap/pkg/utils"
)

// DefaultTopK is how many predictions an upload returns
const DefaultTopK = 3

// ClassifierBridge handles communication with the Python audio classifier
type ClassifierBridge struct {
	serviceURL string
	httpClient *http.Client
}

// NewClassifierBridge creates a new classifier bridge
func NewClassifierBridge(serviceURL string) *ClassifierBridge {
	return &ClassifierBridge{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// classifierResponse is the classifier's per-class probability vector
type classifierResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// Classify sends the audio to the classifier and returns the top k
// predictions. When the classifier is unreachable a deterministic mock
// prediction is returned and isMock is set.
func (b *ClassifierBridge) Classify(ctx context.Context, filename string, audio []byte, k int) (predictions []domain.Prediction, isMock bool, err error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, false, fmt.Errorf("classifier: failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, false, fmt.Errorf("classifier: failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, false, fmt.Errorf("classifier: failed to finish form: %w", err)
	}

	url := fmt.Sprintf("%s/classify", b.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, false, fmt.Errorf("classifier: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		// Return mock prediction on error
		return TopPredictions(mockProbabilities(audio), k), true, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TopPredictions(mockProbabilities(audio), k), true, nil
	}

	var out classifierResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("classifier: failed to decode response: %w", err)
	}
	if len(out.Probabilities) == 0 {
		return nil, false, fmt.Errorf("classifier: empty probability vector")
	}

	return TopPredictions(out.Probabilities, k), false, nil
}

// Health checks classifier connectivity
func (b *ClassifierBridge) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", b.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("classifier: failed to create health request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("classifier: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier: health check returned status %d", resp.StatusCode)
	}

	return nil
}

// TopPredictions returns the k most probable classes, highest first.
// Ties keep the lower class index first.
func TopPredictions(probabilities []float64, k int) []domain.Prediction {
	preds := make([]domain.Prediction, 0, len(probabilities))
	for i, p := range probabilities {
		preds = append(preds, domain.Prediction{ClassIndex: i, Confidence: utils.Clamp(p, 0, 1)})
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Confidence > preds[j].Confidence
	})
	if k > 0 && k < len(preds) {
		preds = preds[:k]
	}
	return preds
}

// mockProbabilities derives a stable distribution from the audio bytes so
// the same file always classifies the same way in demo mode
func mockProbabilities(audio []byte) []float64 {
	h := fnv.New64a()
	h.Write(audio)
	seed := h.Sum64()

	n := len(domain.SoundLabels)
	probs := make([]float64, n)
	winner := int(seed % uint64(n))
	rest := 0.25 / float64(n-1)
	for i := range probs {
		probs[i] = rest
	}
	probs[winner] = 0.75

	// Shift a little weight onto a runner-up so the ranking is not flat
	runnerUp := int((seed / uint64(n)) % uint64(n))
	if runnerUp != winner {
		probs[runnerUp] += 0.05
		probs[winner] -= 0.05
	}
	for i := range probs {
		probs[i] = utils.RoundTo(probs[i], 4)
	}
	return probs
}
