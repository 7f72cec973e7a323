// Package consumer rebuilds the corpus when a reload request arrives on
// the corpus-reload topic.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/kafka"
)

// ReloadRequest is the payload of a corpus-reload message.
type ReloadRequest struct {
	Reason      string    `json:"reason"`
	RequestedBy string    `json:"requested_by"`
	RequestID   string    `json:"request_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// Reloader is the engine as seen by the consumer.
type Reloader interface {
	Corpus() *index.Corpus
	Reload(ctx context.Context) (*index.Corpus, error)
}

type ReloadConsumer struct {
	kafka  *kafka.Consumer
	logger *slog.Logger
}

// New subscribes r to the reload topic under the configured group.
func New(cfg config.KafkaConfig, r Reloader) *ReloadConsumer {
	return &ReloadConsumer{
		kafka:  kafka.NewConsumer(cfg, cfg.Topics.CorpusReload, "", HandleMessage(r)),
		logger: slog.Default().With("component", "reload-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (rc *ReloadConsumer) Start(ctx context.Context) error {
	return rc.kafka.Start(ctx)
}

func (rc *ReloadConsumer) Stats() kafka.ConsumerStats {
	return rc.kafka.Stats()
}

// HandleMessage rebuilds the corpus for each request. A request stamped
// earlier than the build time of the live corpus is already satisfied and
// is skipped, so a burst of requests costs one rebuild.
func HandleMessage(r Reloader) kafka.MessageHandler {
	logger := slog.Default().With("component", "reload-consumer")
	return func(ctx context.Context, _, value []byte) error {
		req, err := kafka.DecodeJSON[ReloadRequest](value)
		if err != nil {
			return err
		}
		log := logger.With("request_id", req.RequestID, "reason", req.Reason, "requested_by", req.RequestedBy)

		if live := r.Corpus(); live != nil && !req.RequestedAt.IsZero() && live.BuiltAt.After(req.RequestedAt) {
			log.Info("reload already satisfied", "built_at", live.BuiltAt, "requested_at", req.RequestedAt)
			return nil
		}

		started := time.Now()
		c, err := r.Reload(ctx)
		if err != nil {
			return fmt.Errorf("reload %q: %w", req.Reason, err)
		}
		log.Info("corpus reloaded", "documents", c.Len(), "vocabulary", c.Vocabulary.Len(), "took", time.Since(started))
		return nil
	}
}
