package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crop-risk-service/internal/config"
	"github.com/couchcryptid/crop-risk-service/internal/domain"
)

// AlertWriter publishes risk-alert notifications for downstream delivery
// (SMS, push). It implements risk.AlertSink.
type AlertWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the configured alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &AlertWriter{writer: w, logger: logger}
}

// CreateRiskAlert publishes the alert keyed by farmer.
func (w *AlertWriter) CreateRiskAlert(ctx context.Context, alert domain.Notification) error {
	msg, err := serializeAlert(alert)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish risk alert: %w", err)
	}
	return nil
}

// Close flushes and closes the producer.
func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

func serializeAlert(alert domain.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.FarmerID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "notification_type", Value: []byte(alert.Type)},
			{Key: "level", Value: []byte(alert.Level)},
		},
	}, nil
}
