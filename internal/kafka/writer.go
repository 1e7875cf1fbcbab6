package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rtm0/nino34/internal/climate"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces index records to a Kafka topic.
// It implements export.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
	source string
}

// NewWriter creates a Kafka producer for the given topic. source names the
// dataset the records were derived from and is sent as a header.
func NewWriter(brokers []string, topic, source string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, source: source}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string {
	return "kafka"
}

// Insert serializes and publishes index records in a single WriteMessages
// call.
func (w *Writer) Insert(ctx context.Context, recs []climate.Record) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(recs))
	for i := range recs {
		msg, err := serializeToMessage(recs[i], w.source)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("records published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

// Close flushes pending messages and closes the underlying writer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// indexMessage is the JSON value of a published record.
type indexMessage struct {
	Region      string  `json:"region"`
	Time        string  `json:"time"`
	TimestampMS int64   `json:"timestamp_ms"`
	Value       float64 `json:"value"`
}

// serializeToMessage marshals an index record into a Kafka message.
func serializeToMessage(rec climate.Record, source string) (kafkago.Message, error) {
	data, err := json.Marshal(indexMessage{
		Region:      rec.Region,
		Time:        time.UnixMilli(rec.Timestamp).UTC().Format(time.RFC3339),
		TimestampMS: rec.Timestamp,
		Value:       rec.Value,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize index record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Region + "|" + strconv.FormatInt(rec.Timestamp, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "region", Value: []byte(rec.Region)},
			{Key: "source", Value: []byte(source)},
		},
	}, nil
}
