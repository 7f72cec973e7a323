package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/config"
)

// Event is one outgoing message. Messages with the same Key land on the
// same partition; Value is sent as JSON.
type Event struct {
	Key   string
	Value any
}

type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer writes to topic with leader acks and small batches.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchSize:              100,
			BatchTimeout:           10 * time.Millisecond,
			MaxAttempts:            3,
			AllowAutoTopicCreation: true,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch sends every event that encodes. Encoding failures do not
// stop the rest of the batch; they come back together with any write error.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	msgs, result := encode(events)
	if len(msgs) == 0 {
		return result.ErrorOrNil()
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("write failed", "messages", len(msgs), "error", err)
		result = multierror.Append(result, fmt.Errorf("writing %d messages: %w", len(msgs), err))
	} else {
		p.logger.Debug("published", "messages", len(msgs))
	}
	return result.ErrorOrNil()
}

func encode(events []Event) ([]kafka.Message, *multierror.Error) {
	var errs *multierror.Error
	msgs := make([]kafka.Message, 0, len(events))
	for i, e := range events {
		value, err := json.Marshal(e.Value)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("event %d (key %q): %w", i, e.Key, err))
			continue
		}
		msgs = append(msgs, kafka.Message{Key: []byte(e.Key), Value: value})
	}
	return msgs, errs
}

// Close flushes buffered messages.
func (p *Producer) Close() error {
	return p.writer.Close()
}
