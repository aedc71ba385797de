package receiver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/orderflow/orderrelay/server/internal/config"
)

const kafkaRetryDelay = time.Second

// messageReader is the subset of *kafka.Reader the receiver uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka relays records from one topic.
type Kafka struct {
	reader messageReader
	pub    Publisher
	topic  string
}

// NewKafka creates a consumer-group reader for cfg.Topic that publishes
// through pub. New groups start at the latest offset: the relay has no
// backlog semantics, so history from before startup is not replayed.
func NewKafka(cfg config.KafkaConfig, pub Publisher) *Kafka {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		StartOffset: kafka.LastOffset,
		Dialer: &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})
	return &Kafka{reader: r, pub: pub, topic: cfg.Topic}
}

// Run fetches, publishes and commits records until ctx is cancelled. Fetch
// errors are logged and retried after a short delay. A record whose broadcast
// fails is still committed: delivery is best-effort.
func (k *Kafka) Run(ctx context.Context) error {
	defer k.reader.Close()
	slog.Info("receiver: kafka consuming", "topic", k.topic)

	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			slog.Warn("receiver: kafka fetch failed", "topic", k.topic, "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(kafkaRetryDelay):
			}
			continue
		}

		k.handle(ctx, msg)

		if err := k.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			slog.Warn("receiver: kafka commit failed",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		}
	}
}

func (k *Kafka) handle(ctx context.Context, msg kafka.Message) {
	slog.Debug("receiver: kafka record",
		"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	if _, err := k.pub.Publish(ctx, SourceKafka, msg.Value); err != nil {
		slog.Error("receiver: kafka record not relayed",
			"topic", msg.Topic, "offset", msg.Offset, "err", err)
	}
}
