package repository

import (
	"context"
	"errors"

	"streampay-audit-backend/internal/dto"
	"streampay-audit-backend/internal/model"
)

// ErrStoreUnavailable signals that no durable store is configured or
// reachable. The write path treats it as a no-op cycle; the read path
// degrades to empty results.
var ErrStoreUnavailable = errors.New("audit store unavailable")

// AuditStore is the write-side store handle. InsertBatch must apply the
// whole batch inside one transaction on one checked-out session: either
// every entry becomes durable or none does.
type AuditStore interface {
	InsertBatch(ctx context.Context, entries []model.AuditEntry) error
	Available() bool
}

// AuditQueryRepository is the read-side store handle, independent of the
// write path.
type AuditQueryRepository interface {
	Query(ctx context.Context, req dto.AuditQueryRequest) ([]model.AuditEntry, error)
	CountByLevel(ctx context.Context, req dto.AuditStatsRequest) (map[string]int64, error)
	CountByAction(ctx context.Context, req dto.AuditStatsRequest) (map[string]int64, error)
	Available() bool
}
