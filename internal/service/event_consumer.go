package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"streampay-audit-backend/internal/audit"
	"streampay-audit-backend/internal/dto"
	"streampay-audit-backend/internal/kafka"
	"streampay-audit-backend/internal/model"
)

// EventConsumerService bridges the Kafka audit event topic into the
// entry builder, so the automation services can emit domain events
// without linking against this process.
type EventConsumerService interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
}

type eventConsumerService struct {
	consumer kafka.EventConsumer
	logger   *audit.Logger
}

func NewEventConsumerService(consumer kafka.EventConsumer, logger *audit.Logger) EventConsumerService {
	return &eventConsumerService{
		consumer: consumer,
		logger:   logger,
	}
}

func (s *eventConsumerService) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	if !s.consumer.Enabled() {
		log.Info().Msg("Audit event consumer not enabled, skipping consume loop")
		return
	}
	log.Info().Msg("Starting audit event consume loop...")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Audit event consume loop stopping due to context cancellation.")
			return
		default:
		}

		envelope, msg, err := s.consumer.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if envelope == nil && msg.Topic != "" {
				// Poison message: commit so it is not refetched forever.
				if err := s.consumer.CommitMessages(ctx, msg); err != nil {
					log.Error().Err(err).Msg("Failed to commit poison audit event")
				}
				continue
			}
			log.Error().Err(err).Msg("Error fetching audit event")
			time.Sleep(1 * time.Second)
			continue
		}

		s.dispatch(envelope, msg.Offset)

		if err := s.consumer.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit audit event")
		}
	}
}

// dispatch routes an envelope to the matching entry builder. Ingestion
// is fire-and-forget: a malformed payload is reported and skipped, never
// retried or surfaced.
func (s *eventConsumerService) dispatch(envelope *dto.AuditEventEnvelope, offset int64) {
	switch envelope.Kind {
	case dto.EventKindStreamCreation:
		var ev dto.StreamCreationEvent
		if !decodePayload(envelope.Payload, &ev, envelope.Kind, offset) {
			return
		}
		s.logger.LogStreamCreation(ev)
	case dto.EventKindContractInteraction:
		var ev dto.ContractInteractionEvent
		if !decodePayload(envelope.Payload, &ev, envelope.Kind, offset) {
			return
		}
		s.logger.LogContractInteraction(ev)
	case dto.EventKindScheduler:
		var ev dto.SchedulerEvent
		if !decodePayload(envelope.Payload, &ev, envelope.Kind, offset) {
			return
		}
		s.logger.LogSchedulerEvent(ev)
	case dto.EventKindMonitor:
		var ev dto.MonitorEvent
		if !decodePayload(envelope.Payload, &ev, envelope.Kind, offset) {
			return
		}
		s.logger.LogMonitorEvent(ev)
	case dto.EventKindGeneric, "":
		var req dto.IngestRequest
		if !decodePayload(envelope.Payload, &req, dto.EventKindGeneric, offset) {
			return
		}
		ctx := req.Context
		if req.ActionType != "" {
			if ctx == nil {
				ctx = model.Context{}
			}
			ctx["action_type"] = req.ActionType
		}
		s.logger.Log(model.ParseLevel(req.Level), req.Message, ctx)
	default:
		log.Warn().Str("kind", envelope.Kind).Int64("offset", offset).Msg("Unknown audit event kind, skipping")
	}
}

func decodePayload(raw json.RawMessage, v any, kind string, offset int64) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		log.Warn().Err(err).Str("kind", kind).Int64("offset", offset).Msg("Malformed audit event payload, skipping")
		return false
	}
	return true
}
