package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"streampay-audit-backend/internal/audit"
	"streampay-audit-backend/internal/dto"
	"streampay-audit-backend/internal/repository"
)

type AuditStatsService interface {
	GetStats(ctx context.Context, req dto.AuditStatsRequest) (*dto.AuditStatsResponse, error)
}

type auditStatsService struct {
	queryRepo repository.AuditQueryRepository
	queue     *audit.Queue
}

func NewAuditStatsService(queryRepo repository.AuditQueryRepository, queue *audit.Queue) AuditStatsService {
	return &auditStatsService{
		queryRepo: queryRepo,
		queue:     queue,
	}
}

// GetStats combines durable aggregates with live pipeline state. When
// the store is unavailable the durable counts are empty but the queue
// figures are still reported.
func (s *auditStatsService) GetStats(ctx context.Context, req dto.AuditStatsRequest) (*dto.AuditStatsResponse, error) {
	if !req.EndTime.IsZero() && !req.StartTime.IsZero() && req.EndTime.Before(req.StartTime) {
		return nil, errors.New("endTime cannot be before startTime")
	}

	resp := &dto.AuditStatsResponse{
		CountByLevel:  map[string]int64{},
		CountByAction: map[string]int64{},
		QueueDepth:    s.queue.Len(),
		DroppedTotal:  s.queue.Dropped(),
	}

	if !s.queryRepo.Available() {
		log.Warn().Msg("Audit store unavailable, returning queue stats only")
		return resp, nil
	}

	byLevel, err := s.queryRepo.CountByLevel(ctx, req)
	if err != nil && !errors.Is(err, repository.ErrStoreUnavailable) {
		return nil, err
	}
	byAction, err := s.queryRepo.CountByAction(ctx, req)
	if err != nil && !errors.Is(err, repository.ErrStoreUnavailable) {
		return nil, err
	}

	for level, count := range byLevel {
		resp.CountByLevel[level] = count
		resp.TotalEntries += count
	}
	for action, count := range byAction {
		resp.CountByAction[action] = count
	}

	return resp, nil
}
