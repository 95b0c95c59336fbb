package kafka

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"streampay-audit-backend/config"
	"streampay-audit-backend/internal/audit"
	"streampay-audit-backend/internal/model"
)

// auditMirror republishes durably written batches to a Kafka topic for
// downstream compliance consumers (webhook delivery, offline archival).
// With no brokers configured it is a no-op.
type auditMirror struct {
	writer *kafka.Writer
	topic  string
}

func ProvideAuditMirror(lc fx.Lifecycle, cfg *config.Config) audit.Mirror {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.MirrorTopic == "" {
		log.Info().Msg("Kafka mirror disabled (no brokers configured)")
		return &auditMirror{}
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.MirrorTopic,
		Balancer: &kafka.LeastBytes{},
		Async:    true,
	})
	m := &auditMirror{
		writer: writer,
		topic:  cfg.Kafka.MirrorTopic,
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Kafka mirror producer")
			return writer.Close()
		},
	})
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.MirrorTopic).Msg("Kafka mirror producer initialized")
	return m
}

func (m *auditMirror) Publish(ctx context.Context, entries []model.AuditEntry) error {
	if m.writer == nil || len(entries) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(entries))
	for i := range entries {
		value, err := json.Marshal(&entries[i])
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal audit entry for mirror")
			continue
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(entries[i].Employer),
			Value: value,
		})
	}
	if len(messages) == 0 {
		return nil
	}

	if err := m.writer.WriteMessages(ctx, messages...); err != nil {
		log.Error().Err(err).Int("message_count", len(messages)).Msg("Failed to mirror audit entries to Kafka")
		return err
	}

	log.Debug().Int("message_count", len(messages)).Str("topic", m.topic).Msg("Mirrored audit entries to Kafka")
	return nil
}
