// Package events publishes pipeline lifecycle events (run started, run
// finished, upload result) to a broker when one is configured.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is one pipeline lifecycle event.
type Event struct {
	RunID  string                 `json:"run_id"`
	Kind   string                 `json:"kind"` // run_started / run_succeeded / run_failed / bundle_uploaded
	At     time.Time              `json:"at"`
	Detail map[string]interface{} `json:"detail,omitempty"`
}

// Publisher emits pipeline events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, event Event) error { return nil }
func (Noop) Close() error                                   { return nil }

// Kafka publishes events to a Kafka topic.
type Kafka struct {
	writer *kafka.Writer
}

// NewKafka creates a publisher for the given brokers and topic.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RunID),
		Value: data,
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
