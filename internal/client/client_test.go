package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchNoiseEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/noise-data" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"sound_type":"siren","intensity":0.8,"lat":40.75,"lng":-73.98,"timestamp":"2024-01-01T00:00:00Z"}]`)
	}))
	defer srv.Close()

	events, err := NewLoader(srv.URL + "/").FetchNoiseEvents(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("unexpected event count: %d", len(events))
	}
	e := events[0]
	if e.SoundType != "siren" || e.Intensity != 0.8 || e.Latitude != 40.75 || e.Longitude != -73.98 {
		t.Fatalf("unexpected event payload: %+v", e)
	}
	if e.Timestamp.Year() != 2024 {
		t.Fatalf("timestamp not parsed: %v", e.Timestamp)
	}
}

func TestFetchNoiseEventsDropsIncompleteItems(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"only incomplete", `[{"intensity":0.5}]`, 0},
		{"mixed", `[{"intensity":0.5},{"sound_type":"dog_bark","intensity":0.3,"lat":40.7,"lng":-74.0,"timestamp":"2024-01-02T00:00:00Z"},{"sound_type":"siren","lat":40.7,"lng":-74.0}]`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			events, err := NewLoader(srv.URL).FetchNoiseEvents(context.Background())
			if err != nil {
				t.Fatalf("fetch failed: %v", err)
			}
			if events == nil || len(events) != tc.want {
				t.Fatalf("expected %d events, got %+v", tc.want, events)
			}
			for _, e := range events {
				if err := e.Validate(); err != nil {
					t.Fatalf("invalid event kept: %+v (%v)", e, err)
				}
			}
		})
	}
}

func TestFetchNoiseEventsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewLoader(srv.URL).FetchNoiseEvents(context.Background())
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
}

func TestClassifyAudioSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "a.wav" || string(data) != "RIFF" {
			t.Errorf("unexpected upload %q %q", hdr.Filename, data)
		}
		io.WriteString(w, `{"success":true,"predictions":[[8,0.92],[1,0.05]],"filename":"a.wav"}`)
	}))
	defer srv.Close()

	res, err := NewUploader(srv.URL).ClassifyAudio(context.Background(), "a.wav", strings.NewReader("RIFF"))
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	top, ok := res.Top()
	if !res.Success || !ok || top.ClassIndex != 8 || top.Confidence != 0.92 || res.Filename != "a.wav" {
		t.Fatalf("unexpected result %+v", res)
	}
	if top.Label() != "siren" {
		t.Fatalf("class 8 should be siren, got %s", top.Label())
	}
}

func TestClassifyAudioLogicalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"success":false,"error":"bad format"}`)
	}))
	defer srv.Close()

	res, err := NewUploader(srv.URL).ClassifyAudio(context.Background(), "a.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("logical failure must not be a transport error: %v", err)
	}
	if res.Success || res.Error != "bad format" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestClassifyAudioTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, err := NewUploader(url).ClassifyAudio(context.Background(), "a.wav", strings.NewReader("x")); err == nil {
		t.Fatal("expected transport error against a closed server")
	}
}
