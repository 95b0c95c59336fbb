package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"streampay-audit-backend/config"
	"streampay-audit-backend/internal/dto"
	"streampay-audit-backend/internal/model"
	"streampay-audit-backend/internal/repository"
)

// auditLogRow mirrors the persisted record shape.
type auditLogRow struct {
	ID              string    `gorm:"column:id;primaryKey"`
	Timestamp       time.Time `gorm:"column:timestamp"`
	LogLevel        string    `gorm:"column:log_level"`
	Message         string    `gorm:"column:message"`
	ActionType      string    `gorm:"column:action_type"`
	Employer        *string   `gorm:"column:employer"`
	Context         []byte    `gorm:"column:context"`
	TransactionHash *string   `gorm:"column:transaction_hash"`
	BlockNumber     *int64    `gorm:"column:block_number"`
	ErrorMessage    *string   `gorm:"column:error_message"`
	ErrorCode       *string   `gorm:"column:error_code"`
	ErrorStack      *string   `gorm:"column:error_stack"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (auditLogRow) TableName() string {
	return auditLogsTableName
}

type auditQueryRepository struct {
	db *gorm.DB
}

// NewAuditQueryRepository builds the read-side repository. Like the write
// store, a missing or unreachable database produces an unavailable handle
// so queries degrade to empty results instead of failing.
func NewAuditQueryRepository(cfg *config.Config) repository.AuditQueryRepository {
	if cfg.Database.DSN == "" {
		log.Warn().Msg("No database DSN configured, audit query repository is unavailable")
		return &auditQueryRepository{}
	}

	db, err := gorm.Open(gormpostgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open read-side database handle, audit query repository is unavailable")
		return &auditQueryRepository{}
	}

	log.Info().Msg("Audit query repository initialized")
	return &auditQueryRepository{db: db}
}

func (r *auditQueryRepository) Available() bool {
	return r.db != nil
}

// Query applies the conjunctive filters, orders newest-first by event
// timestamp, and paginates last.
func (r *auditQueryRepository) Query(ctx context.Context, req dto.AuditQueryRequest) ([]model.AuditEntry, error) {
	if r.db == nil {
		return nil, repository.ErrStoreUnavailable
	}

	tx := r.scoped(ctx, req.StartTime, req.EndTime, req.Employer)
	if req.Level != "" {
		tx = tx.Where("log_level = ?", string(req.Level))
	}
	if req.ActionType != "" {
		tx = tx.Where("action_type = ?", string(req.ActionType))
	}

	var rows []auditLogRow
	err := tx.Order("timestamp DESC").
		Limit(req.Limit).
		Offset(req.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("audit log query failed: %w", err)
	}

	entries := make([]model.AuditEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.toEntry()
	}
	return entries, nil
}

func (r *auditQueryRepository) CountByLevel(ctx context.Context, req dto.AuditStatsRequest) (map[string]int64, error) {
	return r.countBy(ctx, req, "log_level")
}

func (r *auditQueryRepository) CountByAction(ctx context.Context, req dto.AuditStatsRequest) (map[string]int64, error) {
	return r.countBy(ctx, req, "action_type")
}

func (r *auditQueryRepository) countBy(ctx context.Context, req dto.AuditStatsRequest, column string) (map[string]int64, error) {
	if r.db == nil {
		return nil, repository.ErrStoreUnavailable
	}

	var buckets []struct {
		Key   string
		Count int64
	}
	err := r.scoped(ctx, req.StartTime, req.EndTime, req.Employer).
		Select(column + " AS key, count(*) AS count").
		Group(column).
		Scan(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("audit log aggregation by %s failed: %w", column, err)
	}

	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Key] = b.Count
	}
	return counts, nil
}

func (r *auditQueryRepository) scoped(ctx context.Context, start, end time.Time, employer string) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&auditLogRow{})
	if !start.IsZero() {
		tx = tx.Where("timestamp >= ?", start)
	}
	if !end.IsZero() {
		tx = tx.Where("timestamp <= ?", end)
	}
	if employer != "" {
		tx = tx.Where("employer = ?", employer)
	}
	return tx
}

func (row auditLogRow) toEntry() model.AuditEntry {
	entry := model.AuditEntry{
		ID:         row.ID,
		Timestamp:  row.Timestamp,
		Level:      model.Level(row.LogLevel),
		Message:    row.Message,
		ActionType: model.ActionType(row.ActionType),
		CreatedAt:  row.CreatedAt,
	}
	if row.Employer != nil {
		entry.Employer = *row.Employer
	}
	if row.TransactionHash != nil {
		entry.TransactionHash = *row.TransactionHash
	}
	if row.BlockNumber != nil {
		entry.BlockNumber = *row.BlockNumber
	}
	if row.ErrorMessage != nil {
		entry.ErrorMessage = *row.ErrorMessage
	}
	if row.ErrorCode != nil {
		entry.ErrorCode = *row.ErrorCode
	}
	if row.ErrorStack != nil {
		entry.ErrorStack = *row.ErrorStack
	}
	if len(row.Context) > 0 {
		var c model.Context
		if err := json.Unmarshal(row.Context, &c); err != nil {
			log.Warn().Err(err).Str("id", row.ID).Msg("Failed to unmarshal stored entry context")
		} else {
			entry.Context = c
		}
	}
	return entry
}
