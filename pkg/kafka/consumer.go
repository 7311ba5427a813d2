package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

// Handler processes a consumed Kafka message. A returned error is logged
// and the message is not committed.
type Handler func(ctx context.Context, msg Message) error

// Consumer reads one topic and hands every message to a Handler.
type Consumer struct {
	reader  *kafkago.Reader
	handler Handler
	logger  *slog.Logger
	commit  bool
}

// NewConsumer creates a reader for topic. With cfg.ConsumerGroup set,
// offsets are committed after each handled message; without one, reading
// starts at the newest offset and nothing is committed.
func NewConsumer(cfg Config, topic string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	dialer, err := cfg.dialer()
	if err != nil {
		return nil, err
	}

	readerCfg := kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		Dialer:      dialer,
		StartOffset: kafkago.LastOffset,
	}
	if cfg.ConsumerGroup != "" {
		readerCfg.StartOffset = kafkago.FirstOffset
	}

	return &Consumer{
		reader:  kafkago.NewReader(readerCfg),
		handler: handler,
		logger:  logger.With("topic", topic, "group", cfg.ConsumerGroup),
		commit:  cfg.ConsumerGroup != "",
	}, nil
}

// Start consumes until ctx is cancelled, which is reported as a nil error.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer starting")
	for {
		m, err := c.reader.FetchMessage(ctx)
		switch {
		case ctx.Err() != nil:
			c.logger.Info("consumer stopped")
			return nil
		case err != nil:
			return fmt.Errorf("kafka: fetch: %w", err)
		}
		c.handle(ctx, m)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafkago.Message) {
	log := c.logger.With("partition", m.Partition, "offset", m.Offset)
	if err := c.handler(ctx, fromKafka(m)); err != nil {
		log.Warn("message not handled", "error", err)
		return
	}
	if !c.commit {
		return
	}
	if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		log.Error("commit failed", "error", err)
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("kafka: close reader: %w", err)
	}
	return nil
}
