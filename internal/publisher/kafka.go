// Package publisher streams ingested noise events and upload
// classifications to Kafka
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/urbansound/noisemap/internal/domain"
)

// KafkaPublisher implements domain.EventPublisher with a sarama SyncProducer
type KafkaPublisher struct {
	producer            sarama.SyncProducer
	eventsTopic         string
	classificationTopic string
}

// NewKafkaPublisher connects to the comma-separated broker list
func NewKafkaPublisher(brokers, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 100 * time.Millisecond
	cfg.Producer.Return.Successes = true // Must be true for SyncProducer
	cfg.Net.DialTimeout = 10 * time.Second

	brokerList := strings.Split(brokers, ",")
	producer, err := sarama.NewSyncProducer(brokerList, cfg)
	if err != nil {
		return nil, fmt.Errorf("publisher: failed to create producer: %w", err)
	}

	log.Printf("Kafka producer connected to %v", brokerList)
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer. Classifications
// go to "<topic>-classifications".
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer:            producer,
		eventsTopic:         topic,
		classificationTopic: topic + "-classifications",
	}
}

// PublishNoiseEvent sends the event keyed by its sound type
func (p *KafkaPublisher) PublishNoiseEvent(ctx context.Context, event domain.NoiseEvent) error {
	return p.send(ctx, p.eventsTopic, event.SoundType, event)
}

// PublishClassification sends the classification keyed by its log ID
func (p *KafkaPublisher) PublishClassification(ctx context.Context, entry domain.ClassificationLog) error {
	return p.send(ctx, p.classificationTopic, entry.ID, entry)
}

func (p *KafkaPublisher) send(ctx context.Context, topic, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("publisher: failed to encode message: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("publisher: failed to send to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and closes the producer
func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
