package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"streampay-audit-backend/config"
	"streampay-audit-backend/internal/dto"
)

// EventConsumer receives domain events published by the automation
// services on the audit event topic.
type EventConsumer interface {
	Enabled() bool
	FetchMessage(ctx context.Context) (*dto.AuditEventEnvelope, kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type auditEventConsumer struct {
	reader *kafka.Reader
}

func NewAuditEventConsumer(lc fx.Lifecycle, cfg *config.Config) EventConsumer {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.EventTopic == "" {
		log.Info().Msg("Kafka event consumer disabled (no brokers configured)")
		return &auditEventConsumer{}
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.ConsumerGroup,
		Topic:          cfg.Kafka.EventTopic,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        10 * time.Second,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	c := &auditEventConsumer{
		reader: reader,
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Str("group", cfg.Kafka.ConsumerGroup).Msg("Closing Kafka event consumer")
			return c.Close()
		},
	})
	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.EventTopic).
		Str("group", cfg.Kafka.ConsumerGroup).
		Msg("Kafka event consumer initialized")
	return c
}

func (c *auditEventConsumer) Enabled() bool {
	return c.reader != nil
}

func (c *auditEventConsumer) FetchMessage(ctx context.Context) (*dto.AuditEventEnvelope, kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, kafka.Message{}, err
	}
	log.Debug().
		Str("topic", msg.Topic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("Fetched audit event from Kafka")

	var envelope dto.AuditEventEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		log.Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to unmarshal audit event envelope")
		return nil, msg, err
	}
	return &envelope, msg, nil
}

func (c *auditEventConsumer) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		log.Error().Err(err).Int("count", len(msgs)).Msg("Failed to commit audit event messages")
		return err
	}
	return nil
}

func (c *auditEventConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
