package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"streampay-audit-backend/config"
	"streampay-audit-backend/internal/audit"
	"streampay-audit-backend/internal/metrics"
)

// NewStatsReporter periodically samples the pipeline's live state (queue
// depth, total drops) into the operational log and the Prometheus gauge.
func NewStatsReporter(lc fx.Lifecycle, cfg *config.Config, queue *audit.Queue, m *metrics.PipelineMetrics) *cron.Cron {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))

	schedule := cfg.Scheduler.StatsSchedule
	_, err := c.AddFunc(schedule, func() {
		depth := queue.Len()
		m.SetQueueDepth(depth)
		log.Info().
			Int("queue_depth", depth).
			Uint64("dropped_total", queue.Dropped()).
			Msg("Audit pipeline stats")
	})
	if err != nil {
		log.Fatal().Err(err).Str("schedule", schedule).Msg("Failed to add stats reporter cron job")
		return nil
	}
	log.Info().Str("schedule", schedule).Msg("Scheduled audit pipeline stats reporting")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msg("Starting stats reporter scheduler")
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Stopping stats reporter scheduler...")
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
				log.Info().Msg("Stats reporter scheduler stopped gracefully.")
				return nil
			case <-ctx.Done():
				log.Error().Msg("Context cancelled while waiting for stats reporter to stop.")
				return ctx.Err()
			}
		},
	})

	return c
}
