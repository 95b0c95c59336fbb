package dto

import (
	"time"

	"streampay-audit-backend/internal/model"
)

// AuditQueryRequest filters compose conjunctively. Zero values mean
// "no constraint" except Limit/Offset, which the service defaults.
type AuditQueryRequest struct {
	StartTime  time.Time
	EndTime    time.Time
	Level      model.Level
	Employer   string
	ActionType model.ActionType
	Limit      int
	Offset     int
}

type AuditQueryResponse struct {
	Entries []model.AuditEntry `json:"entries"`
	Count   int                `json:"count"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
}

// IngestRequest is the generic HTTP ingestion payload.
type IngestRequest struct {
	Level      string        `json:"level"`
	Message    string        `json:"message"`
	ActionType string        `json:"action_type,omitempty"`
	Context    model.Context `json:"context,omitempty"`
}

// AuditStatsRequest scopes aggregate counts to a time range.
type AuditStatsRequest struct {
	StartTime time.Time
	EndTime   time.Time
	Employer  string
}

type AuditStatsResponse struct {
	TotalEntries  int64            `json:"total_entries"`
	CountByLevel  map[string]int64 `json:"count_by_level"`
	CountByAction map[string]int64 `json:"count_by_action"`
	QueueDepth    int              `json:"queue_depth"`
	DroppedTotal  uint64           `json:"dropped_total"`
}
