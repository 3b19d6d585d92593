package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/urbansound/noisemap/internal/domain"
	"github.com/urbansound/noisemap/internal/repository/postgres"
	"github.com/urbansound/noisemap/internal/service"
	"github.com/urbansound/noisemap/internal/storage"
)

type stubClassifier struct{}

func (stubClassifier) Classify(ctx context.Context, filename string, audio []byte, k int) ([]domain.Prediction, bool, error) {
	return []domain.Prediction{{ClassIndex: 8, Confidence: 0.92}, {ClassIndex: 1, Confidence: 0.05}}, false, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	return newTestAppWithLimit(t, 0)
}

func newTestAppWithLimit(t *testing.T, bodyLimit int) *fiber.App {
	t.Helper()

	uploads, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	repo := postgres.NewMockRepository()
	noiseSvc := service.NewNoiseService(repo, nil)
	uploadSvc := service.NewUploadService(uploads, stubClassifier{}, repo, nil, nil)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler, BodyLimit: bodyLimit})
	SetupRoutes(app, NewHandler(noiseSvc, uploadSvc, uploads, nil))
	return app
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(part, content)
	} else {
		mw.WriteField("note", "no file")
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func decode(t *testing.T, r io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestGetNoiseDataReturnsArray(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/noise-data", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var raw []map[string]any
	decode(t, resp.Body, &raw)
	if len(raw) != 2 {
		t.Fatalf("expected 2 sample events, got %d", len(raw))
	}
	for _, key := range []string{"sound_type", "intensity", "lat", "lng", "timestamp"} {
		if _, ok := raw[0][key]; !ok {
			t.Fatalf("wire field %q missing: %v", key, raw[0])
		}
	}
}

func TestPostNoiseData(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/noise-data", strings.NewReader(`{"sound_type":"dog_bark","intensity":0.4,"lat":40.7,"lng":-74.0}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/api/noise-data", nil))
	var events []domain.NoiseEvent
	decode(t, resp.Body, &events)
	if len(events) != 3 || events[2].SoundType != "dog_bark" {
		t.Fatalf("ingested event not listed: %+v", events)
	}

	bad := httptest.NewRequest("POST", "/api/noise-data", strings.NewReader(`{"intensity":0.4,"lat":40.7,"lng":-74.0}`))
	bad.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(bad)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("missing sound_type should be rejected, got %d", resp.StatusCode)
	}
	var body map[string]any
	decode(t, resp.Body, &body)
	if body["error"] != true {
		t.Fatalf("expected error envelope, got %v", body)
	}
}

func TestUploadSuccess(t *testing.T) {
	app := newTestApp(t)

	body, ct := multipartBody(t, "file", "a.wav", "RIFF")
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", ct)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var res domain.ClassificationResult
	decode(t, resp.Body, &res)
	if !res.Success || res.Filename != "a.wav" || len(res.Predictions) != 2 || res.Predictions[0].ClassIndex != 8 {
		t.Fatalf("unexpected result %+v", res)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/static/uploads/a.wav", nil))
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || string(data) != "RIFF" {
		t.Fatalf("uploaded audio not served: %d %q", resp.StatusCode, data)
	}
}

func TestUploadFailures(t *testing.T) {
	app := newTestApp(t)

	cases := []struct {
		name, field, filename, want string
	}{
		{"no file part", "", "", "No file part"},
		{"invalid type", "file", "notes.txt", "Invalid file type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartBody(t, tc.field, tc.filename, "x")
			req := httptest.NewRequest("POST", "/api/classify", body)
			req.Header.Set("Content-Type", ct)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("status %d", resp.StatusCode)
			}
			var res domain.ClassificationResult
			decode(t, resp.Body, &res)
			if res.Success || res.Error != tc.want {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
}

func TestGetUploadNotFound(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/static/uploads/missing.wav", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]any
	decode(t, resp.Body, &body)
	if body["status"] != "ok" || body["database"] != "ok" {
		t.Fatalf("unexpected health body %v", body)
	}
}

func TestGetStats(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/stats", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var body map[string]any
	decode(t, resp.Body, &body)
	if body["events"] != float64(2) || body["classifications"] != float64(0) {
		t.Fatalf("unexpected stats %v", body)
	}
}

func TestUploadTooLarge(t *testing.T) {
	app := newTestAppWithLimit(t, 1024)

	for _, path := range []string{"/upload", "/api/classify"} {
		body, ct := multipartBody(t, "file", "big.wav", strings.Repeat("x", 4096))
		req := httptest.NewRequest("POST", path, body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != fiber.StatusRequestEntityTooLarge {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		var res domain.ClassificationResult
		decode(t, resp.Body, &res)
		if res.Success || res.Error != "File too large" {
			t.Fatalf("%s: unexpected result %+v", path, res)
		}
	}
}
