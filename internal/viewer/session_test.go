package viewer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/urbansound/noisemap/internal/domain"
	"github.com/urbansound/noisemap/internal/mapview"
)

type fakeFetcher struct {
	events []domain.NoiseEvent
	err    error
}

func (f *fakeFetcher) FetchNoiseEvents(ctx context.Context) ([]domain.NoiseEvent, error) {
	return f.events, f.err
}

type fakeClassifier struct {
	result domain.ClassificationResult
	err    error
}

func (f *fakeClassifier) ClassifyAudio(ctx context.Context, filename string, r io.Reader) (domain.ClassificationResult, error) {
	return f.result, f.err
}

func newTestSession(fetcher EventFetcher, classifier AudioClassifier, alerts *AlertLog) *Session {
	cfg := mapview.DefaultConfig()
	cfg.Random = func() float64 { return 0.1 }
	cfg.Now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	return NewSession(cfg, mapview.NewInfoPanel("en-US", time.UTC), fetcher, classifier, alerts)
}

func siren() domain.NoiseEvent {
	return domain.NoiseEvent{SoundType: "siren", Intensity: 0.8, Latitude: 40.75, Longitude: -73.98, Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestLoadReplacesStoreAndRenders(t *testing.T) {
	s := newTestSession(&fakeFetcher{events: []domain.NoiseEvent{siren()}}, &fakeClassifier{}, &AlertLog{})

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	scene := s.Renderer.Scene()
	if len(scene.Markers) != 1 || scene.Markers[0].Color != mapview.ColorFor("siren") {
		t.Fatalf("unexpected scene after load: %+v", scene.Markers)
	}
}

func TestLoadFailureLeavesStoreUnchanged(t *testing.T) {
	fetcher := &fakeFetcher{events: []domain.NoiseEvent{siren(), siren()}}
	s := newTestSession(fetcher, &fakeClassifier{}, &AlertLog{})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	fetcher.err = errors.New("connection refused")
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if s.Store.Len() != 2 || len(s.Renderer.Scene().Markers) != 2 {
		t.Fatal("failed load must keep prior state")
	}
}

func TestHandleUploadLogicalFailure(t *testing.T) {
	alerts := &AlertLog{}
	s := newTestSession(&fakeFetcher{}, &fakeClassifier{result: domain.ClassificationResult{Success: false, Error: "bad format"}}, alerts)

	out := s.HandleUpload(context.Background(), "a.wav", strings.NewReader("x"))

	if out.Success {
		t.Fatal("outcome should not be successful")
	}
	got := alerts.Drain()
	if len(got) != 1 || !strings.Contains(got[0], "bad format") {
		t.Fatalf("unexpected alerts %v", got)
	}
	if s.Store.Len() != 0 || len(s.Renderer.Scene().Markers) != 0 {
		t.Fatal("logical failure must not add a marker")
	}
}

func TestHandleUploadTransportFailure(t *testing.T) {
	alerts := &AlertLog{}
	s := newTestSession(&fakeFetcher{}, &fakeClassifier{err: errors.New("dial tcp: refused")}, alerts)

	s.HandleUpload(context.Background(), "a.wav", strings.NewReader("x"))

	got := alerts.Drain()
	if len(got) != 1 || !strings.HasPrefix(got[0], "Error uploading file:") {
		t.Fatalf("unexpected alerts %v", got)
	}
	if s.Store.Len() != 0 {
		t.Fatal("transport failure must leave the store unchanged")
	}
}

func TestHandleUploadSuccessAppendsAtViewportCenter(t *testing.T) {
	alerts := &AlertLog{}
	result := domain.ClassificationResult{
		Success:     true,
		Predictions: []domain.Prediction{{ClassIndex: 8, Confidence: 0.92}, {ClassIndex: 1, Confidence: 0.05}},
		Filename:    "a.wav",
	}
	s := newTestSession(&fakeFetcher{}, &fakeClassifier{result: result}, alerts)
	s.Renderer.SetViewport(mapview.Viewport{Center: domain.LatLng{Lat: 40.7, Lng: -74.01}, Zoom: 14})

	out := s.HandleUpload(context.Background(), "a.wav", strings.NewReader("x"))

	if !out.Success || out.Event == nil {
		t.Fatalf("unexpected outcome %+v", out)
	}
	e := out.Event
	if e.SoundType != "siren" || e.Intensity != 0.92 || e.Latitude != 40.7 || e.Longitude != -74.01 {
		t.Fatalf("unexpected appended event %+v", e)
	}
	if s.Store.Len() != 1 || len(s.Renderer.Scene().Markers) != 1 {
		t.Fatal("expected exactly one marker after a successful upload")
	}
	if s.AudioSource() != "/static/uploads/a.wav" || out.AudioSource != "/static/uploads/a.wav" {
		t.Fatalf("unexpected audio source %q", s.AudioSource())
	}
	if len(out.Results) != 2 || out.Results[0].Label != "Siren" || out.Results[0].Confidence != "92.0% confidence" {
		t.Fatalf("unexpected results list %+v", out.Results)
	}
	if len(alerts.Drain()) != 0 {
		t.Fatal("success must not raise an alert")
	}
}

func TestClickSelectsMarkerOrSynthesizes(t *testing.T) {
	s := newTestSession(&fakeFetcher{events: []domain.NoiseEvent{siren()}}, &fakeClassifier{}, &AlertLog{})
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	selected, e := s.Click(40.75, -73.98)
	if !selected || e.SoundType != "siren" {
		t.Fatalf("click on marker should select it: selected=%v event=%+v", selected, e)
	}
	panel, ok := s.Panel.Last()
	if !ok || panel.Title != "Siren" {
		t.Fatalf("info panel not updated: %+v", panel)
	}

	selected, e = s.Click(40.60, -73.80)
	if selected {
		t.Fatal("click on empty map should not select")
	}
	if e.SoundType != "siren" || s.Store.Len() != 2 {
		t.Fatalf("empty-map click should append a synthetic event: %+v len=%d", e, s.Store.Len())
	}
}

func TestAlertLogBounded(t *testing.T) {
	a := &AlertLog{}
	for i := 0; i < maxAlerts+5; i++ {
		a.Alert("x")
	}
	if got := a.Drain(); len(got) != maxAlerts {
		t.Fatalf("expected %d alerts, got %d", maxAlerts, len(got))
	}
	if got := a.Drain(); len(got) != 0 {
		t.Fatal("drain should clear alerts")
	}
}
