package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"streampay-audit-backend/internal/dto"
	"streampay-audit-backend/internal/model"
	"streampay-audit-backend/internal/repository"
)

const (
	DefaultQueryLimit = 1000
	MaxQueryLimit     = 10000
)

type AuditQueryService interface {
	Query(ctx context.Context, req dto.AuditQueryRequest) (*dto.AuditQueryResponse, error)
}

type auditQueryService struct {
	queryRepo repository.AuditQueryRepository
}

func NewAuditQueryService(queryRepo repository.AuditQueryRepository) AuditQueryService {
	return &auditQueryService{
		queryRepo: queryRepo,
	}
}

// Query returns entries matching all supplied filters, newest first.
// Pagination defaults are applied here; limit and offset always apply
// after filtering and ordering. An unavailable store yields an empty
// result set, not an error; a configured store's genuine query error
// does propagate.
func (s *auditQueryService) Query(ctx context.Context, req dto.AuditQueryRequest) (*dto.AuditQueryResponse, error) {
	if !req.EndTime.IsZero() && !req.StartTime.IsZero() && req.EndTime.Before(req.StartTime) {
		return nil, errors.New("endTime cannot be before startTime")
	}
	if req.Limit <= 0 || req.Limit > MaxQueryLimit {
		req.Limit = DefaultQueryLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	log.Debug().
		Time("start_time", req.StartTime).
		Time("end_time", req.EndTime).
		Str("level", string(req.Level)).
		Str("employer", req.Employer).
		Str("action_type", string(req.ActionType)).
		Int("limit", req.Limit).
		Int("offset", req.Offset).
		Msg("Querying audit logs")

	if !s.queryRepo.Available() {
		log.Warn().Msg("Audit store unavailable, returning empty query result")
		return &dto.AuditQueryResponse{
			Entries: []model.AuditEntry{},
			Limit:   req.Limit,
			Offset:  req.Offset,
		}, nil
	}

	entries, err := s.queryRepo.Query(ctx, req)
	if err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			return &dto.AuditQueryResponse{
				Entries: []model.AuditEntry{},
				Limit:   req.Limit,
				Offset:  req.Offset,
			}, nil
		}
		return nil, err
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}

	return &dto.AuditQueryResponse{
		Entries: entries,
		Count:   len(entries),
		Limit:   req.Limit,
		Offset:  req.Offset,
	}, nil
}
