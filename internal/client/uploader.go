package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/urbansound/noisemap/internal/domain"
)

// Uploader submits audio files to the backend classification endpoint
type Uploader struct {
	baseURL    string
	httpClient *http.Client
}

// NewUploader creates a new uploader for the backend at baseURL
func NewUploader(baseURL string) *Uploader {
	return &Uploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// ClassifyAudio POSTs the file as multipart field "file".
//
// A transport failure is returned as an error. A backend-reported failure
// ({"success": false, "error": ...}) is returned as a result with Success
// unset, whatever the HTTP status.
func (u *Uploader) ClassifyAudio(ctx context.Context, filename string, r io.Reader) (domain.ClassificationResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("uploader: failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("uploader: failed to read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("uploader: failed to finish form: %w", err)
	}

	url := fmt.Sprintf("%s/upload", u.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("uploader: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("uploader: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result domain.ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return domain.ClassificationResult{}, fmt.Errorf("uploader: %w %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		return domain.ClassificationResult{}, fmt.Errorf("uploader: failed to decode response: %w", err)
	}

	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("classification failed with status %d", resp.StatusCode)
	}

	return result, nil
}
