package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives status change events when no topic is configured
const DefaultTopic = "campuslink.status-changes"

// KafkaWriter is the subset of *kafka.Writer used by KafkaPublisher.
// This allows for easy mocking in unit tests.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka publisher
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaPublisher writes events as JSON keyed by service id
type KafkaPublisher struct {
	writer  KafkaWriter
	topic   string
	timeout time.Duration
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher backed by a kafka-go Writer
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		topic = DefaultTopic
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           timeout,
		MaxAttempts:            2,
		WriteBackoffMax:        100 * time.Millisecond,
		AllowAutoTopicCreation: true,
		// Publishing happens on the request path; batching would hold it up.
		BatchTimeout: 10 * time.Millisecond,
	}
	return newKafkaPublisher(writer, topic, timeout), nil
}

func newKafkaPublisher(writer KafkaWriter, topic string, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic, timeout: timeout}
}

// PublishStatusChanged writes one message. It gives up after the write
// timeout or when ctx ends, whichever comes first.
func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, event StatusChanged) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode status event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ServiceID),
		Value: value,
		Time:  event.CheckedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("status.changed")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish status event to %s: %w", p.topic, err)
	}

	slog.DebugContext(ctx, "Published status event",
		"topic", p.topic, "service_id", event.ServiceID, "is_open", event.IsOpen)
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
