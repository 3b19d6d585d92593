package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/urbansound/noisemap/internal/domain"
)

func TestPublishNoiseEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var e domain.NoiseEvent
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		if e.SoundType != "siren" || e.Intensity != 0.8 {
			t.Errorf("unexpected payload %+v", e)
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "noise-events")
	err := p.PublishNoiseEvent(context.Background(), domain.NoiseEvent{
		SoundType: "siren", Intensity: 0.8, Latitude: 40.75, Longitude: -73.98, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestPublishClassificationFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "noise-events")
	err := p.PublishClassification(context.Background(), domain.ClassificationLog{ID: "x", Filename: "a.wav"})
	if err == nil {
		t.Fatal("expected send failure to surface")
	}
	p.Close()
}

func TestPublishRespectsCancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	p := NewKafkaPublisherWithProducer(producer, "noise-events")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.PublishNoiseEvent(ctx, domain.NoiseEvent{SoundType: "siren"}); err == nil {
		t.Fatal("expected cancelled context error")
	}
	p.Close()
}
