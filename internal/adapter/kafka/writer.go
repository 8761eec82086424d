package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/uv-feed-service/internal/config"
	"github.com/couchcryptid/uv-feed-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes ingested snapshots to a Kafka topic, one message per
// reading keyed by reading ID. It implements pipeline.SnapshotPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes every reading of the snapshot and writes them in a
// single WriteMessages call. Keys hash to stable partitions so consumers see
// each location's updates in order.
func (w *Writer) Publish(ctx context.Context, snapshot domain.Snapshot) error {
	if len(snapshot.Readings) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snapshot.Readings))
	for i := range snapshot.Readings {
		msg, err := serializeToMessage(snapshot.Readings[i], snapshot.FetchedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d readings: %w", len(msgs), err)
	}
	w.logger.Debug("snapshot published", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a reading as its stored document.
func serializeToMessage(r domain.Reading, fetchedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(domain.NewReadingDocument(r, fetchedAt))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading %s: %w", r.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(r.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "location_name", Value: []byte(r.LocationName)},
			{Key: "fetched_at", Value: []byte(fetchedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
