package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/urbansound/noisemap/internal/domain"
	"github.com/urbansound/noisemap/internal/service"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndListPreservesOrder(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	labels := []string{"siren", "drilling", "dog_bark"}
	for i, label := range labels {
		e := domain.NoiseEvent{SoundType: label, Intensity: 0.1 * float64(i+1), Latitude: 40.75, Longitude: -73.98, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.SaveNoiseEvent(ctx, e); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	all, err := repo.ListNoiseEvents(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("unexpected event count: %d", len(all))
	}
	for i, label := range labels {
		if all[i].SoundType != label {
			t.Fatalf("order not preserved at %d: %s", i, all[i].SoundType)
		}
	}
	if !all[0].Timestamp.Equal(base) {
		t.Fatalf("timestamp round trip failed: %v", all[0].Timestamp)
	}

	recent, err := repo.ListNoiseEvents(ctx, 2)
	if err != nil {
		t.Fatalf("limited list failed: %v", err)
	}
	if len(recent) != 2 || recent[0].SoundType != "drilling" || recent[1].SoundType != "dog_bark" {
		t.Fatalf("limit should keep the most recent events in order: %+v", recent)
	}
}

func TestSaveClassificationLog(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	entry := domain.ClassificationLog{
		ID:          "0b7f4f7e-1111-4c1d-9a42-2f7c3b1c0001",
		Filename:    "a.wav",
		Predictions: []domain.Prediction{{ClassIndex: 8, Confidence: 0.92}},
		CreatedAt:   time.Now(),
	}
	if err := repo.SaveClassificationLog(ctx, entry); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	n, err := repo.CountClassificationLogs(ctx)
	if err != nil || n != 1 {
		t.Fatalf("count=%d err=%v", n, err)
	}
	if err := repo.Health(ctx); err != nil {
		t.Fatalf("health failed: %v", err)
	}
}

func TestStatsCountsClassifications(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	for _, name := range []string{"a.wav", "b.ogg"} {
		entry := domain.ClassificationLog{ID: name, Filename: name, CreatedAt: time.Now()}
		if err := repo.SaveClassificationLog(ctx, entry); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	stats, err := service.NewNoiseService(repo, nil).Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Events != 0 || stats.Classifications == nil || *stats.Classifications != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
