package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Kunal-1304/Android-device-monitoring/internal/logger"
	"github.com/Kunal-1304/Android-device-monitoring/internal/models"
)

// Sink delivers a formatted alert message for a device. Delivery is
// best-effort: callers log failures and move on, retries belong to the
// sink itself if anywhere.
type Sink interface {
	Send(ctx context.Context, deviceID, message string) error
	Close() error
}

// LogSink writes alerts to the structured log. It is the default sink
// when no broker is configured.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) Send(ctx context.Context, deviceID, message string) error {
	log := logger.WithComponent("notify")
	log.Warn().
		Str("device_id", deviceID).
		Str("message", message).
		Msg("alert")
	return nil
}

func (s *LogSink) Close() error { return nil }

// KafkaSink publishes alert notifications to a Kafka topic, keyed by
// device so a device's alerts stay ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
}

// notification is the wire format published to the alert topic.
type notification struct {
	DeviceID string    `json:"device_id"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"sent_at"`
}

// NewKafkaSink creates a sink writing to the given brokers and topic.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Partition by key
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &KafkaSink{writer: writer}, nil
}

func (s *KafkaSink) Send(ctx context.Context, deviceID, message string) error {
	data, err := json.Marshal(notification{
		DeviceID: deviceID,
		Message:  message,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("serialize notification: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(deviceID),
		Value: data,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// FormatMessage renders the operator-facing alert text.
func FormatMessage(e models.AlertEvent) string {
	return fmt.Sprintf("alert from %s: %s at %s", e.DeviceID, e.Message,
		e.Timestamp.Format(time.RFC3339))
}
