package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"streampay-audit-backend/config"
	"streampay-audit-backend/internal/model"
	"streampay-audit-backend/internal/repository"
)

const auditLogsTableName = "audit_logs"

const insertEntrySQL = `
	INSERT INTO audit_logs
		(id, timestamp, log_level, message, action_type, employer, context,
		 transaction_hash, block_number, error_message, error_code, error_stack)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

type auditStore struct {
	pool *pgxpool.Pool
}

// ProvideAuditStore builds the write-side store. A missing DSN or an
// unreachable database yields an unavailable store rather than an error:
// the pipeline keeps queueing and the persister treats every cycle as a
// no-op until the store comes back at next process start.
func ProvideAuditStore(lc fx.Lifecycle, cfg *config.Config) repository.AuditStore {
	if cfg.Database.DSN == "" {
		log.Warn().Msg("No database DSN configured, audit store is unavailable")
		return &auditStore{}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid database DSN, audit store is unavailable")
		return &auditStore{}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Warn().Err(err).Msg("Unable to create connection pool, audit store is unavailable")
		return &auditStore{}
	}

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return pool.Ping(pingCtx)
	}
	if err := backoff.Retry(ping, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)); err != nil {
		pool.Close()
		log.Warn().Err(err).Msg("Failed to ping database, audit store is unavailable")
		return &auditStore{}
	}
	log.Info().Msg("Audit store connection pool created and verified.")

	store := &auditStore{pool: pool}

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()
	if err := store.ensureTable(setupCtx); err != nil {
		pool.Close()
		log.Warn().Err(err).Msg("Failed to ensure audit_logs table, audit store is unavailable")
		return &auditStore{}
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing audit store connection pool...")
			pool.Close()
			return nil
		},
	})

	return store
}

func (s *auditStore) ensureTable(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			log_level TEXT NOT NULL,
			message TEXT NOT NULL,
			action_type TEXT NOT NULL,
			employer TEXT,
			context JSONB,
			transaction_hash TEXT,
			block_number BIGINT,
			error_message TEXT,
			error_code TEXT,
			error_stack TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`, auditLogsTableName)

	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", auditLogsTableName, err)
	}
	log.Info().Str("table", auditLogsTableName).Msg("Ensured audit_logs table exists.")

	indexSQL := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_employer_time ON %s (employer, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_%s_action_type ON %s (action_type);
	`, auditLogsTableName, auditLogsTableName, auditLogsTableName, auditLogsTableName)
	if _, err := s.pool.Exec(ctx, indexSQL); err != nil {
		log.Warn().Err(err).Msg("Failed to create indexes on audit_logs (continuing)")
	}

	return nil
}

func (s *auditStore) Available() bool {
	return s.pool != nil
}

// InsertBatch writes the whole batch inside one transaction on one
// checked-out connection, so BEGIN, the writes, and COMMIT are guaranteed
// to hit the same session. Any failure rolls back the entire batch.
func (s *auditStore) InsertBatch(ctx context.Context, entries []model.AuditEntry) error {
	if s.pool == nil {
		return repository.ErrStoreUnavailable
	}
	if len(entries) == 0 {
		return nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range entries {
		e := &entries[i]
		batch.Queue(insertEntrySQL,
			uuid.NewString(),
			e.Timestamp,
			string(e.Level),
			e.Message,
			string(e.ActionType),
			nullable(e.Employer),
			contextJSON(e.Context),
			nullable(e.TransactionHash),
			nullableInt(e.BlockNumber),
			nullable(e.ErrorMessage),
			nullable(e.ErrorCode),
			nullable(e.ErrorStack),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range entries {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("batch insert failed: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	log.Debug().Int("count", len(entries)).Msg("Committed audit entry batch")
	return nil
}

func contextJSON(c model.Context) any {
	if len(c) == 0 {
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		// The entry already survived a structural round-trip at build
		// time, so this should not happen; keep the row rather than fail
		// the whole batch.
		log.Error().Err(err).Msg("Failed to marshal entry context, storing null")
		return nil
	}
	return data
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
