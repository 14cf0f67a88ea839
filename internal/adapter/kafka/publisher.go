package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/air-quality-service/internal/config"
	"github.com/couchcryptid/air-quality-service/internal/domain"
)

// Publisher produces prediction events to a Kafka topic.
// It implements prediction.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured prediction topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaPredictionTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one prediction. Events for the same location and date share
// a key and therefore a partition.
func (p *Publisher) Publish(ctx context.Context, r domain.PredictionResult) error {
	msg, err := serializeToMessage(r)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish prediction %s: %w", r.ID, err)
	}
	p.logger.Debug("prediction published", "id", r.ID, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a PredictionResult into a Kafka message.
func serializeToMessage(r domain.PredictionResult) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.EventKey()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(r.Category)},
			{Key: "predicted_at", Value: []byte(r.PredictedAt.Format(time.RFC3339))},
		},
	}, nil
}
