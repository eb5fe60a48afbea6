package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crop-risk-service/internal/config"
	"github.com/couchcryptid/crop-risk-service/internal/risk"
)

// Writer publishes risk results to the snapshot topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes the results in a single WriteMessages
// call. Messages are keyed by crop cycle so a cycle's snapshots stay ordered.
func (w *Writer) LoadBatch(ctx context.Context, results []risk.Result) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeResult(results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeResult(res risk.Result) (kafkago.Message, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(res.CropCycleID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(res.RiskLevel)},
			{Key: "source", Value: []byte(res.Source)},
			{Key: "computed_at", Value: []byte(res.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
