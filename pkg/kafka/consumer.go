// Package kafka wraps segmentio/kafka-go with JSON producers and
// group consumers for the reload and analytics topics.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/config"
)

// MessageHandler processes one message value.
type MessageHandler func(ctx context.Context, key, value []byte) error

// ConsumerStats counts handled messages since start.
type ConsumerStats struct {
	Processed int64
	Failed    int64
}

// Consumer feeds one topic of a consumer group into a handler. Offsets
// are committed whether or not the handler succeeds, so a message that
// cannot be handled is logged and skipped rather than redelivered.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	logger  *slog.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// NewConsumer joins group on topic, or cfg.ConsumerGroup when group is
// empty. A new group starts at the newest offset.
func NewConsumer(cfg config.KafkaConfig, topic, group string, handler MessageHandler) *Consumer {
	if group == "" {
		group = cfg.ConsumerGroup
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     group,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.LastOffset,
		}),
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", group),
	}
}

// Start blocks handling messages until ctx ends and then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("consuming")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped", "processed", c.processed.Load(), "failed", c.failed.Load())
			return nil
		}
		if err != nil {
			c.logger.Error("fetch failed", "error", err)
			continue
		}
		c.dispatch(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) {
	if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
		c.failed.Add(1)
		c.logger.Error("message skipped",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"bytes", len(msg.Value),
			"error", err,
		)
		return
	}
	c.processed.Add(1)
}

func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{Processed: c.processed.Load(), Failed: c.failed.Load()}
}

// DecodeJSON unmarshals a message value into a T.
func DecodeJSON[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("decoding kafka message: %w", err)
	}
	return v, nil
}
